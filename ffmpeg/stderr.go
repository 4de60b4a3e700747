// Package ffmpeg reads ffmpeg's stderr stream.
package ffmpeg

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"splicer/internal/timeutil"
)

// Diagnostics is what an engine run left on stderr once progress noise is
// removed.
type Diagnostics struct {
	Errors   []string // lines that report a failure
	Lines    []string // every other non-progress line, in order
	Position float64  // last output time reached, in seconds
}

// Parser separates ffmpeg's diagnostics from its progress output. Both the
// -stats format (all fields on one line) and the -progress format (one
// key=value per line) are recognised.
type Parser struct {
	statsRegex    *regexp.Regexp
	progressRegex *regexp.Regexp
	timeRegex     *regexp.Regexp
	errorRegex    *regexp.Regexp
}

// NewParser creates a parser for ffmpeg stderr output.
func NewParser() *Parser {
	return &Parser{
		// "frame=  24 fps=25.0 q=-0.0 size=128kB time=00:00:01.00 ..."
		statsRegex: regexp.MustCompile(`^(?:frame|size)=\s*\S+.*\btime=`),
		// "out_time=00:00:01.000000", "progress=continue", ...
		progressRegex: regexp.MustCompile(`^(?:frame|fps|bitrate|total_size|out_time(?:_us|_ms)?|dup_frames|drop_frames|speed|progress|stream_\d+_\d+_q)=`),
		timeRegex:     regexp.MustCompile(`(?:^|\s)(?:out_)?time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`),
		errorRegex:    regexp.MustCompile(`(?i)error|invalid|no such file|not found|failed|unknown|unable|could not|does not contain|permission denied|unrecognized|too many`),
	}
}

// Parse reads r to the end. Lines may be terminated by \n or by the \r
// ffmpeg uses to redraw its stats line.
func (p *Parser) Parse(r io.Reader) (Diagnostics, error) {
	var d Diagnostics
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitLines)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if pos, ok := p.position(line); ok {
			d.Position = pos
		}
		if p.statsRegex.MatchString(line) || p.progressRegex.MatchString(line) {
			continue
		}
		if p.errorRegex.MatchString(line) {
			d.Errors = append(d.Errors, line)
			continue
		}
		d.Lines = append(d.Lines, line)
	}
	return d, scanner.Err()
}

// position extracts the time= field of a progress line in seconds.
func (p *Parser) position(line string) (float64, bool) {
	m := p.timeRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, err1 := strconv.ParseFloat(m[1], 64)
	minutes, err2 := strconv.ParseFloat(m[2], 64)
	seconds, err3 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}

// Summary returns the last n error lines joined with " | ", falling back to
// the last n other lines when nothing looks like an error. A run that got
// past the start of its output is annotated with where it stopped.
func (d Diagnostics) Summary(n int) string {
	lines := d.Errors
	if len(lines) == 0 {
		lines = d.Lines
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	s := strings.Join(lines, " | ")
	if d.Position > 0 {
		stopped := "stopped at " + timeutil.Clock(int(d.Position))
		if s == "" {
			return stopped
		}
		s += " (" + stopped + ")"
	}
	return s
}

// maxTailLine bounds each line of an unparsed tail.
const maxTailLine = 512

// Summarize parses stderr output and returns its Summary. Output the parser
// cannot read, such as a line over its buffer size, is summarized as its last
// n raw lines instead.
func Summarize(stderr string, n int) string {
	d, err := NewParser().Parse(strings.NewReader(stderr))
	if err != nil {
		return rawTail(stderr, n)
	}
	return d.Summary(n)
}

// rawTail returns the last n non-empty lines of s joined with " | ", each cut
// to maxTailLine bytes.
func rawTail(s string, n int) string {
	var lines []string
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxTailLine {
			line = strings.ToValidUTF8(line[:maxTailLine], "") + "..."
		}
		lines = append(lines, line)
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

// splitLines is bufio.ScanLines that also breaks on a bare \r.
func splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
