package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// args holds "--key value" pairs. A flag without a value is "true".
type args map[string]string

func parseArgs(raw []string) args {
	a := args{}
	for i := 0; i < len(raw); i++ {
		key, ok := strings.CutPrefix(raw[i], "--")
		if !ok {
			continue
		}
		if k, v, found := strings.Cut(key, "="); found {
			a[k] = v
			continue
		}
		if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "--") {
			a[key] = raw[i+1]
			i++
			continue
		}
		a[key] = "true"
	}
	return a
}

func (a args) flag(key string) bool {
	return a[key] == "true"
}

func (a args) require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if a[k] == "" {
			missing = append(missing, "--"+k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required options: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (a args) id(key string) (id.ID, error) {
	v, err := id.Parse(a[key])
	if err != nil {
		return id.Nil(), fmt.Errorf("--%s: invalid id %q", key, a[key])
	}
	return v, nil
}

func (a args) optionalID(key string) (*id.ID, error) {
	if a[key] == "" {
		return nil, nil
	}
	v, err := a.id(key)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (a args) quantity(key string) (types.Quantity, error) {
	q, err := types.ParseQuantity(a[key])
	if err != nil {
		return types.Zero(), fmt.Errorf("--%s: invalid quantity %q", key, a[key])
	}
	return q, nil
}

func (a args) int(key string, def int) (int, error) {
	if a[key] == "" {
		return def, nil
	}
	n, err := strconv.Atoi(a[key])
	if err != nil {
		return 0, fmt.Errorf("--%s: invalid number %q", key, a[key])
	}
	return n, nil
}

// date parses YYYY-MM-DD; empty means zero time.
func (a args) date(key string) (time.Time, error) {
	if a[key] == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, a[key])
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", key, a[key])
	}
	return t, nil
}

// fail prints err with its details and exits.
func fail(err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		fmt.Printf("Error [%s]: %s\n", appErr.Code, appErr.Message)
		for k, v := range appErr.Details {
			fmt.Printf("  %s: %v\n", k, v)
		}
		if apperror.IsAlertable(err) {
			fmt.Println("  Manual reconciliation may be required.")
		}
	} else {
		fmt.Printf("Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode is 2 for rejected requests and 1 for everything else.
func exitCode(err error) int {
	if status := apperror.GetHTTPStatus(err); status >= 400 && status < 500 {
		return 2
	}
	return 1
}
