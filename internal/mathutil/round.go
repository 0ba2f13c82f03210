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

// Package mathutil holds the rounding rules shared by aggregates and KPIs.
package mathutil

import "strconv"

// Round rounds the exact binary value of x half-to-even at the given number of decimal places.
// 2.675 is stored just below 2.675, so it rounds to 2.67.
func Round(x float64, places int32) float64 {
	if places < 0 {
		places = 0
	}
	f, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', int(places), 64), 64)
	if err != nil {
		return x
	}
	return f
}

// Percent returns part/whole*100 rounded half-to-even, or 0 when whole is 0.
func Percent(part, whole int, places int32) float64 {
	return PercentFloat(float64(part), float64(whole), places)
}

// PercentFloat is Percent for fractional sums. The ratio is taken before scaling by 100 so the
// float product matches the usual part / whole * 100 evaluation order.
func PercentFloat(part, whole float64, places int32) float64 {
	if whole == 0 {
		return 0
	}
	return Round(part/whole*100, places)
}
