package source

import (
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/tormodhaugland/mtg/internal/debug"
)

// audioDuration decodes the header of an mp3 or wav file to find its
// length. Other types, and files that fail to decode, report false.
func audioDuration(abs, mimeType string) (time.Duration, bool) {
	var decode func(*os.File) (beep.StreamSeekCloser, beep.Format, error)
	switch mimeType {
	case "audio/mpeg":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) }
	case "audio/wav", "audio/x-wav", "audio/wave":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) }
	default:
		return 0, false
	}

	f, err := os.Open(abs)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	stream, format, err := decode(f)
	if err != nil {
		debug.Log("reading duration of %s: %v", abs, err)
		return 0, false
	}
	defer stream.Close()
	return format.SampleRate.D(stream.Len()), true
}
