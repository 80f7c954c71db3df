package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies provider failures into a provider-independent
// taxonomy. Adapters map provider-specific signals (HTTP status, message
// substrings) into these kinds exactly once, at the transport boundary.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthInvalid
	KindRateLimited
	KindQuotaExceeded
	KindModelUnavailable
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthInvalid:
		return "auth_invalid"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

type ProviderError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("provider error (%s)", e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// UserMessage renders the failure reason shown to the sender.
func (e *ProviderError) UserMessage() string {
	switch e.Kind {
	case KindAuthInvalid:
		return "Credenciais do provedor de IA inválidas."
	case KindRateLimited:
		return "Limite de requisições atingido. Aguarde um momento e tente novamente."
	case KindQuotaExceeded:
		return "Créditos do provedor de IA esgotados."
	case KindModelUnavailable:
		return "Modelo de IA indisponível no momento."
	case KindTransport:
		return "Falha de comunicação com o provedor de IA."
	default:
		return "Erro inesperado no provedor de IA."
	}
}

// ClassifyStatus maps an HTTP status (plus the provider message, for
// substring signals like insufficient_quota) to an ErrorKind.
func ClassifyStatus(status int, message string) ErrorKind {
	lower := strings.ToLower(message)
	switch {
	case status == 401 || status == 403:
		return KindAuthInvalid
	case status == 402 || strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "quota"):
		return KindQuotaExceeded
	case status == 429:
		return KindRateLimited
	case status == 404 || strings.Contains(lower, "model"):
		return KindModelUnavailable
	case status == 408 || status == 502 || status == 503 || status == 504:
		return KindTransport
	default:
		return KindUnknown
	}
}

// ClassifyTransport maps non-HTTP failures (timeouts, connection errors) to
// ErrorKind. Everything that never reached the provider is a transport
// failure.
func ClassifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}
	return KindUnknown
}
