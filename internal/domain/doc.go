// Package domain turns METAR-style report text into ordered field rows.
//
// # Input
//
// Report pages arrive as plain text, one observation per line, with fields
// separated by spaces and slashes:
//
//	METAR RCKU 251200Z 18012G25KT 9999 FEW020 SCT025 BKN048 22/18 Q1012 RMK=
//
// Pages also carry banner and table-header lines. A line is kept only when it
// contains the configured station code and a day/time group (six digits then
// "Z"), and contains neither "24Hrs" nor "JSession". See [Accepts].
//
// # Tokenizing
//
// [Tokenize] removes "COR " and "RMK " markers and "=" terminators, splits on
// runs of spaces and slashes, then walks the tokens once:
//
//	Wind group:   the token at [WindTokenPosition] whose first three characters
//	              are digits is split into direction and the remainder,
//	              "18012G25KT" -> "180", "12G25KT".
//	Cloud layers: every token starting with FEW, SCT, BKN or OVC is merged into
//	              the first cloud field, space-separated,
//	              "FEW020", "SCT025" -> "FEW020 SCT025".
//	Anything else is emitted verbatim.
//
// The wind position is a raw token index, so pages whose lines lead with an
// extra column (for example the "METAR" report type) put the wind group at
// index 3. Lines without that column are split at whatever token sits there
// if it starts with three digits.
//
// Temperature/dew point pairs such as "22/18" become two fields because "/"
// is a separator.
package domain
