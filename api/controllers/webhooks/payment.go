package webhooks

import (
	"io"
	"net/http"

	"github.com/sonkoltuk/sonkoltuk-backend/api/responses"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/payments"
	pkgerrors "github.com/sonkoltuk/sonkoltuk-backend/pkg/errors"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/logger"
)

// maxCallbackBody caps provider payloads at 1 MiB.
const maxCallbackBody = 1 << 20

// PaymentCallback receives signed provider notifications and hands the
// raw body to the reconciler. Signature verification needs the exact
// bytes, so nothing is decoded here.
func PaymentCallback(svc payments.Service, signatureHeader string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment reconciler unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "signature header missing"))
			return
		}

		result, err := svc.ApplyCallback(ctx, body, signature)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
