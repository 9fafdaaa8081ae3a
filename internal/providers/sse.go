package providers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sseEvent is one dispatched server-sent event. Multiple data lines are
// joined with "\n".
type sseEvent struct {
	Name string
	Data string
}

// readSSE calls fn for every event in body. fn returning a non-nil error
// stops the read; errStopStream stops it cleanly. A body that ends before
// fn returns errStopStream yields io.ErrUnexpectedEOF.
func readSSE(body io.Reader, fn func(sseEvent) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var (
		name    string
		data    []string
		hasData bool
	)
	dispatch := func() error {
		if !hasData {
			name = ""
			return nil
		}
		ev := sseEvent{Name: name, Data: strings.Join(data, "\n")}
		name, data, hasData = "", data[:0], false
		return fn(ev)
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			if err := dispatch(); err != nil {
				return stopOrErr(err)
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if err := dispatch(); err != nil {
		return stopOrErr(err)
	}
	return io.ErrUnexpectedEOF
}

var errStopStream = errors.New("stop stream")

func stopOrErr(err error) error {
	if errors.Is(err, errStopStream) {
		return nil
	}
	return err
}

// streamErr names the provider on a stream that ended without its terminal
// event.
func streamErr(provider string, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s stream ended before completion: %w", provider, err)
	}
	return err
}
