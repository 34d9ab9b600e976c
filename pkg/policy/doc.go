// ABOUTME: Loudness policy classifier package
// ABOUTME: Maps integrated loudness onto streaming policy bands
// Package policy classifies an integrated loudness value into fixed
// streaming-loudness bands and recommends a gain range for each.
//
// Bands are checked in order and the first match wins:
//
//	< -18 LUFS   too quiet        +4 to +8 dB
//	< -14 LUFS   slightly quiet   +2 to +4 dB
//	> -10 LUFS   too loud         -4 to -2 dB
//	> -12 LUFS   slightly loud    -2 to -1 dB
//	otherwise    good             none
//
// Example:
//
//	band := policy.Classify(m.LUFS())
//	fmt.Println(band.Message, band.Recommendation)
package policy
