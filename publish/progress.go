package publish

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

const progressTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{etime . }}`

// progress tracks the export steps.
type progress interface {
	Describe(step string)
	Increment()
	Finish()
}

func newProgress(w io.Writer, steps int) progress {
	if w == nil {
		return nopProgress{}
	}
	bar := pb.ProgressBarTemplate(progressTemplate).New(steps)
	bar.SetWriter(w)
	bar.SetMaxWidth(100)
	bar.Start()
	return &barProgress{bar: bar}
}

type barProgress struct {
	bar *pb.ProgressBar
}

func (p *barProgress) Describe(step string) {
	p.bar.Set("prefix", step)
}

func (p *barProgress) Increment() {
	p.bar.Increment()
}

func (p *barProgress) Finish() {
	p.bar.Finish()
}

type nopProgress struct{}

func (nopProgress) Describe(string) {}
func (nopProgress) Increment()      {}
func (nopProgress) Finish()         {}
