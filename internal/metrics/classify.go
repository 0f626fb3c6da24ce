package metrics

import "time"

// Class buckets a completed attempt by how it ended.
type Class int

const (
	// Success covers responses with a status code in [100, 400).
	Success Class = iota
	// ClientError covers responses with a status code in [400, 500).
	ClientError
	// ServerError covers responses with a status code of 500 and above.
	ServerError
	// TransportError covers attempts that produced no HTTP response at all:
	// dial failures, timeouts, connection resets.
	TransportError
)

// String returns the class name used in reports.
func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case ClientError:
		return "client_error"
	case ServerError:
		return "server_error"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// ClassOf maps an HTTP status code to its outcome class.
func ClassOf(status int) Class {
	switch {
	case status >= 500:
		return ServerError
	case status >= 400:
		return ClientError
	default:
		return Success
	}
}

// Outcome is the classified result of a single request attempt.
type Outcome struct {
	Class      Class
	StatusCode int           // 0 when no response was received
	Bytes      int64         // response body size; kept for Success only
	Latency    time.Duration // attempt duration, transport failures included
	Err        error         // nil exactly when Class is Success
}

// Failed reports whether the outcome counts against the failure total.
func (o Outcome) Failed() bool {
	return o.Class != Success
}

// Classify folds one attempt's raw result into an Outcome. status == 0 means
// the attempt never produced a response and is a transport failure; such
// outcomes carry no status code and no byte count. Error-class responses
// (status >= 400) drop their byte count as well: only successful payloads
// contribute to size statistics.
func Classify(status int, bytes int64, latency time.Duration, err error) Outcome {
	o := Outcome{
		StatusCode: status,
		Bytes:      bytes,
		Latency:    latency,
		Err:        err,
	}

	if status == 0 {
		o.Class = TransportError
		o.Bytes = 0
		return o
	}

	o.Class = ClassOf(status)
	if o.Class != Success {
		o.Bytes = 0
	}
	return o
}
