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
package classify

import (
	"strings"
	"unicode"

	"github.com/GoogleCloudPlatform/csv-report-extraction/internal/config"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Role is the heuristic kind assigned to a column.
type Role string

const (
	RoleCategorical  Role = "categorical"
	RoleLocation     Role = "location"
	RoleUnclassified Role = "unclassified"
)

// Rules is the keyword table used to assign roles. Categorical keywords are checked first.
type Rules struct {
	Categorical []string
	Location    []string
}

// RulesFromConfig builds Rules from the classifier section of the configuration.
func RulesFromConfig(cfg config.ClassifierConfig) Rules {
	return Rules{
		Categorical: append([]string(nil), cfg.Categorical...),
		Location:    append([]string(nil), cfg.Location...),
	}
}

// DefaultRules returns the built-in English and Portuguese keywords.
func DefaultRules() Rules {
	return RulesFromConfig(config.GetConfig().Classifier)
}

// RoleOf matches the folded column name against the keywords by substring.
func (r Rules) RoleOf(column string) Role {
	name := Fold(column)
	if containsAny(name, r.Categorical) {
		return RoleCategorical
	}
	if containsAny(name, r.Location) {
		return RoleLocation
	}
	return RoleUnclassified
}

func containsAny(name string, keywords []string) bool {
	for _, k := range keywords {
		k = Fold(k)
		if k != "" && strings.Contains(name, k) {
			return true
		}
	}
	return false
}

// Fold lowercases s and strips diacritics, so "Município" becomes "municipio".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
