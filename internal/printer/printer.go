// Package printer writes user-facing status output for pulse commands.
// Output is colored only when the destination is a terminal.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hay-kot/criterio"
	"golang.org/x/term"
)

// ANSI color codes (Tokyo Night palette)
const (
	ColorReset     = "\033[0m"
	ColorRed       = "\033[38;2;215;95;107m"  // #d75f6b
	ColorGreen     = "\033[38;2;158;206;106m" // #9ece6a
	ColorYellow    = "\033[38;2;224;175;104m" // #e0af68
	ColorGray      = "\033[38;2;86;95;137m"   // #565f89
	ColorBold      = "\033[1m"
	ColorUnderline = "\033[4m"
)

const (
	Check = "✔"
	Cross = "✘"
	Dot   = "•"
)

type mark struct {
	color  string
	symbol string
}

var (
	markOK   = mark{ColorGreen, Check}
	markFail = mark{ColorRed, Cross}
	markWarn = mark{ColorYellow, Dot}
	markInfo = mark{ColorGray, Dot}
)

type ctxKey struct{}

type Printer struct {
	writer io.Writer
	color  bool
}

// New creates a Printer writing to w. Colors are enabled when w is a
// terminal and NO_COLOR is unset.
func New(w io.Writer) *Printer {
	return &Printer{
		writer: w,
		color:  isTerminal(w) && os.Getenv("NO_COLOR") == "",
	}
}

// WithColor forces colored output on or off.
func (p *Printer) WithColor(enabled bool) *Printer {
	p.color = enabled
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer attached to ctx, or a stderr printer.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stderr)
}

func (p *Printer) line(s string) {
	_, _ = io.WriteString(p.writer, s+"\n")
}

func (p *Printer) colorize(color, text string) string {
	if !p.color {
		return text
	}
	return color + text + ColorReset
}

func (p *Printer) emit(m mark, msg string) {
	p.line(p.colorize(m.color, m.symbol+" "+msg))
}

// FatalError prints err in a boxed block. Field errors from config or rule
// validation are listed one per line. It does not exit.
func (p *Printer) FatalError(err error) {
	if err == nil {
		return
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		p.box("Error", []string{p.colorize(ColorGray, err.Error())})
		return
	}

	var body []string

	// The wrapping context, e.g. "load config: invalid config".
	if prefix, _, ok := strings.Cut(err.Error(), fieldErrs.Error()); ok && prefix != "" {
		body = append(body, p.colorize(ColorGray, strings.TrimSuffix(prefix, ": ")), "")
	}

	for _, fe := range fieldErrs {
		entry := p.colorize(ColorRed, Cross) + " "
		if fe.Field != "" {
			entry += p.colorize(ColorGray, fe.Field+": ")
		}
		body = append(body, entry+fe.Err.Error())
	}

	p.box("Validation Error", body)
}

func (p *Printer) box(title string, body []string) {
	bar := p.colorize(ColorRed, "│")

	p.line(p.colorize(ColorRed, "╭ "+title))
	for _, b := range body {
		if b == "" {
			p.line(bar)
			continue
		}
		p.line(bar + " " + b)
	}
	p.line(p.colorize(ColorRed, "╵"))
}

func (p *Printer) Errorf(format string, args ...any) {
	p.emit(markFail, fmt.Sprintf(format, args...))
}

func (p *Printer) Successf(format string, args ...any) {
	p.emit(markOK, fmt.Sprintf(format, args...))
}

// Success prints message with an optional gray details line beneath it.
func (p *Printer) Success(message string, details string) {
	p.emit(markOK, message)
	if details != "" {
		p.line("  " + p.colorize(ColorGray, details))
	}
}

func (p *Printer) Infof(format string, args ...any) {
	p.emit(markInfo, fmt.Sprintf(format, args...))
}

func (p *Printer) Warnf(format string, args ...any) {
	p.emit(markWarn, fmt.Sprintf(format, args...))
}

// Printf prints an uncolored line.
func (p *Printer) Printf(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

func (p *Printer) Bold(text string) string {
	return p.colorize(ColorBold, text)
}

// Section prints a bold, underlined header.
func (p *Printer) Section(title string) {
	p.line(p.colorize(ColorBold+ColorUnderline, title))
}

func (p *Printer) CheckItem(label, detail string) {
	p.item(markOK, label, detail)
}

func (p *Printer) WarnItem(label, detail string) {
	p.item(markWarn, label, detail)
}

func (p *Printer) FailItem(label, detail string) {
	p.item(markFail, label, detail)
}

func (p *Printer) item(m mark, label, detail string) {
	s := "  " + p.colorize(m.color, m.symbol) + " " + label
	if detail != "" {
		s += ": " + detail
	}
	p.line(s)
}

// StatusOK, StatusWarn and StatusFailed render a status cell for tables.
func (p *Printer) StatusOK() string {
	return p.colorize(markOK.color, markOK.symbol) + " ok"
}

func (p *Printer) StatusWarn(msg string) string {
	return p.colorize(markWarn.color, markWarn.symbol) + " " + msg
}

func (p *Printer) StatusFailed(msg string) string {
	return p.colorize(markFail.color, markFail.symbol) + " " + msg
}
