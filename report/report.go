package report

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"splicer/internal/timeutil"
	"splicer/models"
)

// Summary describes a finished run.
type Summary struct {
	RunID          string
	Inputs         int
	Segments       int
	Fillers        int
	SequenceLength int
	OutputPath     string
	OutputSize     int64
	Elapsed        time.Duration
	PublishedKey   string
}

// RenderSummary renders s as a two-column table.
func RenderSummary(s Summary) string {
	rows := [][]string{
		{"Inputs", strconv.Itoa(s.Inputs)},
		{"Segments", strconv.Itoa(s.Segments)},
		{"Fillers", strconv.Itoa(s.Fillers)},
		{"Sequence length", strconv.Itoa(s.SequenceLength)},
		{"Output", s.OutputPath},
		{"Output size", humanize.IBytes(uint64(max(s.OutputSize, 0)))},
		{"Elapsed", timeutil.Elapsed(s.Elapsed)},
	}
	if s.PublishedKey != "" {
		rows = append(rows, []string{"Published", s.PublishedKey})
	}
	if s.RunID != "" {
		rows = append(rows, []string{"Run", s.RunID})
	}
	return renderTable("Run summary", []string{"Field", "Value"}, rows, nil)
}

// RenderPlans renders one row per input with its probed duration and
// segment layout.
func RenderPlans(plans []models.SegmentPlan) string {
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []string{
			p.Source.Path,
			timeutil.Clock(p.TotalDuration),
			strconv.Itoa(p.Count),
			strconv.Itoa(p.TargetLength) + "s",
		})
	}
	return renderTable("Segment plans",
		[]string{"Input", "Duration", "Segments", "Target"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight})
}

// Entry is one element of the planned output sequence.
type Entry struct {
	Filler bool
	Path   string

	// Segment fields, unused for fillers.
	Source string
	Start  int
	Length int
}

// RenderSchedule renders the interleaved output sequence in order.
func RenderSchedule(entries []Entry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		kind, source, span := "segment", filepath.Base(e.Source), timeutil.Span(e.Start, e.Length)
		if e.Filler {
			kind, source, span = "filler", "", ""
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			kind,
			filepath.Base(e.Path),
			source,
			span,
		})
	}
	return renderTable("Output sequence",
		[]string{"#", "Kind", "Clip", "Source", "Range"},
		rows,
		[]columnAlignment{alignRight})
}

// Media describes one probed file.
type Media struct {
	Path       string
	Duration   float64
	Width      int
	Height     int
	FrameRate  int
	VideoCodec string
	AudioCodec string
	Size       int64
	Canonical  bool
}

// RenderMedia renders one row per probed file. The last column tells whether
// the file already has the canonical resolution and frame rate.
func RenderMedia(media []Media) string {
	rows := make([][]string, 0, len(media))
	for _, m := range media {
		resolution := "-"
		if m.Width > 0 && m.Height > 0 {
			resolution = strconv.Itoa(m.Width) + "x" + strconv.Itoa(m.Height)
		}
		canonical := "no"
		if m.Canonical {
			canonical = "yes"
		}
		rows = append(rows, []string{
			filepath.Base(m.Path),
			timeutil.Clock(int(m.Duration)),
			resolution,
			strconv.Itoa(m.FrameRate),
			dash(m.VideoCodec),
			dash(m.AudioCodec),
			humanize.IBytes(uint64(max(m.Size, 0))),
			canonical,
		})
	}
	return renderTable("Media",
		[]string{"File", "Duration", "Resolution", "FPS", "Video", "Audio", "Size", "Canonical"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft})
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
