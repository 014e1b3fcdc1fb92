// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package scanner audits persisted text for PII that escaped masking.
//
// The scanner is detective, not preventive: it reads what the pipeline has
// already written (the masked content of vector records and the questions in
// the query log) and reports text that still looks like a Vietnamese tax ID,
// street address, email address or phone number. Masked email tokens are
// recognized and not reported.
//
// Personal-name detection can be enabled with WithNames. It matches runs of
// two to four capitalized Vietnamese words and has a high false-positive
// rate, so it is off by default.
//
// A violation names the record and the category of the match, never the
// matched text itself.
package scanner
