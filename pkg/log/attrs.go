package log

import "log/slog"

func RunID(id string) slog.Attr {
	return slog.String("run_id", id)
}

func NodeID[T ~string](id T) slog.Attr {
	return slog.String("node_id", string(id))
}

func NodeType[T ~string](t T) slog.Attr {
	return slog.String("node_type", string(t))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
