/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package utils

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FindDefaultCSV returns the first *.csv file of dir in lexical order.
func FindDefaultCSV(fs afero.Fs, dir string) (string, error) {
	matches, err := afero.Glob(fs, filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", fmt.Errorf("failed to list CSV files in %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no CSV file found in %s", dir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// FileStem returns the base name of path without its extension.
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func GetDefaultOutputFilePath(sourcePath, commandName, ext string) string {
	stem := FileStem(sourcePath)
	dir := filepath.Dir(sourcePath)
	switch commandName {
	case "report":
		return filepath.Join(dir, fmt.Sprintf("%s_report.%s", stem, ext))
	default: // extract
		return filepath.Join(dir, fmt.Sprintf("%s_aggregates.%s", stem, ext))
	}
}

// ConfirmAction asks on out whether to proceed and reads the answer from in.
func ConfirmAction(in io.Reader, out io.Writer, actionDescription string) bool {
	reader := bufio.NewReader(in)
	fmt.Fprintf(out, "\n-------------------------------------------------------------\n")
	fmt.Fprintf(out, "%s\n", actionDescription)
	fmt.Fprint(out, "Do you want to continue? (yes/no): ")
	text, _ := reader.ReadString('\n')
	action := strings.TrimSpace(strings.ToLower(text))
	return action == "yes" || action == "y"
}

// ParseKeywordsFlag parses "categorical[a,b],location[c]" into keyword lists per group.
func ParseKeywordsFlag(keywordsFlag string, groups ...string) (map[string][]string, error) {
	keywords := make(map[string][]string)
	if strings.TrimSpace(keywordsFlag) == "" {
		return keywords, nil
	}
	allowed := make(map[string]bool, len(groups))
	for _, g := range groups {
		allowed[g] = true
	}

	// Split by comma, but only if the comma is not within square brackets
	parts := SplitOutsideBrackets(keywordsFlag)

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		bracketStart := strings.Index(part, "[")
		if bracketStart == -1 {
			return nil, fmt.Errorf("missing keyword list in: %s", part)
		}
		bracketEnd := strings.Index(part, "]")
		if bracketEnd == -1 || bracketEnd < bracketStart {
			return nil, fmt.Errorf("missing closing bracket in: %s", part)
		}

		group := strings.ToLower(strings.TrimSpace(part[:bracketStart]))
		if len(allowed) > 0 && !allowed[group] {
			return nil, fmt.Errorf("unknown keyword group %q, expected one of %s", group, strings.Join(groups, ", "))
		}

		var words []string
		for _, w := range strings.Split(part[bracketStart+1:bracketEnd], ",") {
			if w = strings.TrimSpace(w); w != "" {
				words = append(words, w)
			}
		}
		keywords[group] = append(keywords[group], words...)
	}

	return keywords, nil
}

// SplitOutsideBrackets Helper function to split string by commas that are not within brackets
func SplitOutsideBrackets(s string) []string {
	var result []string
	var current strings.Builder
	inBrackets := false

	for _, char := range s {
		switch char {
		case '[':
			inBrackets = true
			current.WriteRune(char)
		case ']':
			inBrackets = false
			current.WriteRune(char)
		case ',':
			if inBrackets {
				current.WriteRune(char)
			} else {
				result = append(result, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	// Add the last part
	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}
