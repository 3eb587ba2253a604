package copilot

import "strings"

// deepStreamParser performs the one structured parse of an otherwise
// free-flowing Deep text stream: it watches for the "Question to Ask
// Them" section header and surfaces the header's first complete line as
// a Question chunk, without interrupting the verbatim Content stream.
type deepStreamParser struct {
	lineBuf         strings.Builder
	sawHeader       bool
	questionEmitted bool
}

// Feed appends a delta to the running line buffer and invokes emit for
// every chunk derived from it: always a Content chunk for the delta
// itself, plus a Question chunk the first time a complete non-empty line
// following the header is seen.
func (p *deepStreamParser) Feed(delta string, emit func(DeepChunk)) {
	emit(DeepChunk{Kind: DeepContent, Text: delta})

	for _, r := range delta {
		if r != '\n' {
			p.lineBuf.WriteRune(r)
			continue
		}
		p.processLine(p.lineBuf.String(), emit)
		p.lineBuf.Reset()
	}
}

// Finish flushes any trailing partial line once the stream has ended.
func (p *deepStreamParser) Finish(emit func(DeepChunk)) {
	if p.lineBuf.Len() == 0 {
		return
	}
	p.processLine(p.lineBuf.String(), emit)
	p.lineBuf.Reset()
}

func (p *deepStreamParser) processLine(raw string, emit func(DeepChunk)) {
	if p.questionEmitted {
		return
	}
	line := strings.TrimSpace(raw)

	if p.sawHeader {
		if line != "" {
			emit(DeepChunk{Kind: DeepQuestion, Text: line})
			p.questionEmitted = true
		}
		return
	}

	if strings.Contains(strings.ToLower(line), "question to ask them") {
		p.sawHeader = true
	}
}
