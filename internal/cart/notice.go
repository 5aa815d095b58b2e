package cart

import (
	"fmt"
	"io"
	"strings"
)

type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is the user-facing confirmation or error raised by a cart mutation.
type Notice struct {
	Kind    NoticeKind
	Title   string
	Message string
}

type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// WriterNotifier prints notices one per line, e.g. to a terminal.
type WriterNotifier struct {
	W io.Writer
}

func (w WriterNotifier) Notify(n Notice) {
	prefix := ""
	if n.Kind == NoticeError {
		prefix = "! "
	}
	fmt.Fprintf(w.W, "%s%s: %s\n", prefix, n.Title, n.Message)
}

func errorNotice(err error) Notice {
	msg := err.Error()
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:] + "."
	}
	return Notice{Kind: NoticeError, Title: "Error", Message: msg}
}
