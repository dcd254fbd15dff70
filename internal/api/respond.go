package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tathienbao/terminal-gateway/internal/gateway"
	"github.com/tathienbao/terminal-gateway/internal/metrics"
	"github.com/tathienbao/terminal-gateway/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

// orderErrorResponse reports an order the terminal did not complete.
type orderErrorResponse struct {
	Error       string             `json:"error"`
	Retcode     types.ReturnCode   `json:"retcode"`
	Description string             `json:"description"`
	Comment     string             `json:"comment,omitempty"`
	Order       *types.OrderResult `json:"order"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.recorder.RecordError(metrics.ErrorKind(err))

	if oe, ok := gateway.AsOrderError(err); ok {
		writeJSON(w, http.StatusInternalServerError, orderErrorResponse{
			Error:       "Order not completed",
			Retcode:     oe.Result.Retcode,
			Description: oe.Result.Retcode.Description(),
			Comment:     oe.Result.Comment,
			Order:       oe.Result,
		})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON body into dst and validates it. An empty body
// decodes as an empty object when allowEmpty is set.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", types.ErrInvalidArgument, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		if !allowEmpty {
			return fmt.Errorf("%w: request body is required", types.ErrInvalidArgument)
		}
		data = []byte("{}")
	}
	if err := sonic.ConfigStd.Unmarshal(data, dst); err != nil {
		if errors.Is(err, types.ErrInvalidArgument) {
			return err
		}
		return fmt.Errorf("%w: malformed request body: %v", types.ErrInvalidArgument, err)
	}
	return s.check(dst)
}

// check runs the struct validator and reports missing fields by their JSON
// names.
func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s must satisfy %s", fe.Field(), strings.TrimSpace(fe.Tag()+" "+fe.Param())))
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", types.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return fmt.Errorf("%w: %s", types.ErrInvalidArgument, strings.Join(invalid, "; "))
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}
