package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// describe 生成面向用户的错误描述
func describe(ctx context.Context, backend string, err error) string {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%s: request timed out", backend)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Sprintf("%s: network error: %v", backend, err)
	}
	return fmt.Sprintf("%s: %v", backend, err)
}
