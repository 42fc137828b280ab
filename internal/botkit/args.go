package botkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoArguments is returned when a command expecting JSON arguments got none.
var ErrNoArguments = errors.New("command arguments are empty")

// ParseJSON decodes command arguments such as `/addsource {"name":"x","url":"y"}`.
func ParseJSON[T any](src string) (T, error) {
	var args T

	src = strings.TrimSpace(src)
	if src == "" {
		return args, ErrNoArguments
	}

	if err := json.Unmarshal([]byte(src), &args); err != nil {
		return args, fmt.Errorf("parse command arguments: %w", err)
	}

	return args, nil
}
