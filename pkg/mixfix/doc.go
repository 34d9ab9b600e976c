// ABOUTME: Loudness fix pipeline package
// ABOUTME: Runs decode, measure, classify, correct and encode for one upload
// Package mixfix is the entry point for fixing the loudness of a track.
//
// A single call takes encoded audio bytes through every stage:
//
//	decode -> measure -> classify -> correct -> encode
//
// and returns a 16-bit stereo WAV aimed at -14 LUFS together with a
// Report describing what was measured and changed. Each call is
// independent and safe to run concurrently.
//
// Failures are returned as *StageError naming the stage that failed.
// UserMessage renders any error as text suitable for end users.
//
// Example:
//
//	data, _ := os.ReadFile("song.mp3")
//	result, err := mixfix.Process(audio.Raw{Name: "song.mp3", Data: data})
//	if err != nil {
//	    fmt.Println(mixfix.UserMessage(err))
//	    return
//	}
//	for _, line := range result.Report.Lines() {
//	    fmt.Println(line)
//	}
//	os.WriteFile(encode.OutputName, result.Output, 0644)
package mixfix
