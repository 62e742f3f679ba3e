package transcription

import (
	"fmt"
	"math"
	"strings"

	"github.com/vcenk/say-it-translated/internal/apperr"
	"github.com/vcenk/say-it-translated/internal/model"
)

// Export formats
const (
	FormatText = "txt"
	FormatSRT  = "srt"
	FormatVTT  = "vtt"
)

// ContentType returns the MIME type served for an export format
func ContentType(format string) string {
	switch format {
	case FormatSRT:
		return "application/x-subrip; charset=utf-8"
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Export renders a transcript as plain text or as subtitles built from its
// segments. A transcript without segments becomes a single cue spanning its words.
func Export(t *model.Transcript, format string) (string, error) {
	switch format {
	case "", FormatText:
		return exportText(t), nil
	case FormatSRT:
		return exportCues(t, srtTimestamp, false), nil
	case FormatVTT:
		return exportCues(t, vttTimestamp, true), nil
	default:
		return "", apperr.InvalidInput(fmt.Sprintf("unsupported export format %q (supported: txt, srt, vtt)", format))
	}
}

func exportText(t *model.Transcript) string {
	if len(t.Segments) == 0 {
		return strings.TrimSpace(t.Text) + "\n"
	}

	var b strings.Builder
	for _, seg := range t.Segments {
		if seg.Speaker != nil {
			fmt.Fprintf(&b, "Speaker %d: ", *seg.Speaker)
		}
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func cues(t *model.Transcript) []model.Segment {
	if len(t.Segments) > 0 {
		return t.Segments
	}
	seg := model.Segment{Text: strings.TrimSpace(t.Text)}
	if n := len(t.Words); n > 0 {
		seg.Start = t.Words[0].Start
		seg.End = t.Words[n-1].End
	}
	return []model.Segment{seg}
}

func exportCues(t *model.Transcript, stamp func(float64) string, webvtt bool) string {
	var b strings.Builder
	if webvtt {
		b.WriteString("WEBVTT\n\n")
	}
	for i, seg := range cues(t) {
		if !webvtt {
			fmt.Fprintf(&b, "%d\n", i+1)
		}
		fmt.Fprintf(&b, "%s --> %s\n", stamp(seg.Start), stamp(seg.End))
		text := strings.TrimSpace(seg.Text)
		if seg.Speaker != nil {
			if webvtt {
				text = fmt.Sprintf("<v Speaker %d>%s", *seg.Speaker, text)
			} else {
				text = fmt.Sprintf("Speaker %d: %s", *seg.Speaker, text)
			}
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func splitSeconds(sec float64) (h, m, s, ms int) {
	total := int(math.Round(math.Max(sec, 0) * 1000))
	ms = total % 1000
	total /= 1000
	s = total % 60
	total /= 60
	m = total % 60
	h = total / 60
	return
}

func srtTimestamp(sec float64) string {
	h, m, s, ms := splitSeconds(sec)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func vttTimestamp(sec float64) string {
	h, m, s, ms := splitSeconds(sec)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
