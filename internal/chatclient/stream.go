package chatclient

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// Event is one decoded stream line. Content is a token fragment; Error is a
// server-side message that does not end the stream.
type Event struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Decode reads "data: {...}" lines from r until [DONE] or EOF. Lines without
// the prefix are ignored; lines whose payload is not valid JSON go to
// onMalformed. The returned error is non-nil only for read failures.
func Decode(r io.Reader, onEvent func(Event), onMalformed func(line []byte, err error)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if done := decodeLine(line, onEvent, onMalformed); done {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func decodeLine(line []byte, onEvent func(Event), onMalformed func([]byte, error)) bool {
	line = bytes.TrimRight(line, "\r\n")
	if len(bytes.TrimSpace(line)) == 0 {
		return false
	}
	data, ok := bytes.CutPrefix(line, []byte(dataPrefix))
	if !ok {
		return false
	}
	if string(bytes.TrimSpace(data)) == doneMarker {
		return true
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		if onMalformed != nil {
			onMalformed(line, fmt.Errorf("decode event: %w", err))
		}
		return false
	}
	onEvent(ev)
	return false
}
