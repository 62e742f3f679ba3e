package submission

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// allowedMIMEs maps accepted audio types and their aliases to the stored type
var allowedMIMEs = map[string]string{
	"audio/wav":       "audio/wav",
	"audio/x-wav":     "audio/wav",
	"audio/wave":      "audio/wav",
	"audio/vnd.wave":  "audio/wav",
	"audio/mpeg":      "audio/mpeg",
	"audio/mp3":       "audio/mpeg",
	"audio/mp4":       "audio/mp4",
	"audio/m4a":       "audio/mp4",
	"audio/x-m4a":     "audio/mp4",
	"audio/aac":       "audio/aac",
	"audio/x-aac":     "audio/aac",
	"audio/ogg":       "audio/ogg",
	"audio/opus":      "audio/ogg",
	"audio/webm":      "audio/webm",
	"audio/flac":      "audio/flac",
	"audio/x-flac":    "audio/flac",
	"video/webm":      "audio/webm", // MediaRecorder and sniffers report audio-only webm as video
	"application/ogg": "audio/ogg",
}

// sniffLimit is how many leading bytes are inspected when the declared type is unusable
const sniffLimit = 3072

// baseMIME strips parameters such as ";codecs=opus" and lower-cases the type
func baseMIME(declared string) string {
	base := strings.SplitN(declared, ";", 2)[0]
	return strings.ToLower(strings.TrimSpace(base))
}

func needsSniff(declared string) bool {
	base := baseMIME(declared)
	return base == "" || base == "application/octet-stream"
}

// normalizeMIME resolves the declared type against the allow-list
func normalizeMIME(declared string) (string, bool) {
	t, ok := allowedMIMEs[baseMIME(declared)]
	return t, ok
}

// sniffMIME detects the type from content, walking up the detected type's
// parents until an allowed type is found.
func sniffMIME(head []byte) (string, bool) {
	for m := mimetype.Detect(head); m != nil; m = m.Parent() {
		if t, ok := normalizeMIME(m.String()); ok {
			return t, true
		}
		for candidate, t := range allowedMIMEs {
			if m.Is(candidate) {
				return t, true
			}
		}
	}
	return "", false
}
