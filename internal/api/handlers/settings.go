package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/opay/internal/metrics"
	"github.com/donaldgifford/opay/internal/settings"
	domain "github.com/donaldgifford/opay/pkg/types"
)

// Save results recorded on metrics.SettingsSavesTotal.
const (
	saveResultOK      = "ok"
	saveResultInvalid = "invalid"
	saveResultError   = "error"
)

// SettingsHandler reads and updates the stored OPay credentials.
type SettingsHandler struct {
	store settings.Store
	log   *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(s settings.Store, log *slog.Logger) *SettingsHandler {
	return &SettingsHandler{store: s, log: log}
}

// SettingsBody is the public view of the credentials. The token is masked.
type SettingsBody struct {
	Token      string `json:"token"       example:"*************7890"                   doc:"Bearer token, masked except for the last four characters"`
	MerchantID string `json:"merchant_id" example:"256612345678901"                     doc:"OPay merchant ID"`
	APIURI     string `json:"api_uri"     example:"https://sandboxapi.opaycheckout.com" doc:"Base URI prepended to every endpoint"`
	Valid      bool   `json:"valid"       example:"true"                                doc:"Whether all three values are set"`
}

// SettingsOutput is the response for the settings endpoints.
type SettingsOutput struct {
	Body SettingsBody
}

// UpdateSettingsInput is the request for PUT /api/v1/settings.
type UpdateSettingsInput struct {
	Body struct {
		Token      string `json:"token"       doc:"Bearer token"`
		MerchantID string `json:"merchant_id" doc:"OPay merchant ID"`
		APIURI     string `json:"api_uri"     doc:"Base URI, e.g. https://sandboxapi.opaycheckout.com"`
	}
}

// SettingsStatusOutput is the response for GET /api/v1/settings/status.
type SettingsStatusOutput struct {
	Body struct {
		Valid bool `json:"valid" example:"false" doc:"Whether the stored credentials are complete"`
	}
}

func settingsOutput(creds *domain.Credentials) *SettingsOutput {
	return &SettingsOutput{Body: SettingsBody{
		Token:      creds.MaskedToken(),
		MerchantID: creds.MerchantID,
		APIURI:     creds.BaseURI,
		Valid:      creds.IsValid(),
	}}
}

// Get returns the stored credentials with the token masked.
func (h *SettingsHandler) Get(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	creds, err := h.store.Load(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load settings")
	}
	return settingsOutput(creds), nil
}

// Update validates and stores new credentials. All three values are
// replaced.
func (h *SettingsHandler) Update(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	creds := &domain.Credentials{
		Token:      input.Body.Token,
		MerchantID: input.Body.MerchantID,
		BaseURI:    input.Body.APIURI,
	}

	if err := creds.Validate(); err != nil {
		metrics.SettingsSavesTotal.WithLabelValues(saveResultInvalid).Inc()
		return nil, huma.Error422UnprocessableEntity("invalid OPay settings", fieldDetails(err)...)
	}

	if err := h.store.Save(ctx, creds); err != nil {
		metrics.SettingsSavesTotal.WithLabelValues(saveResultError).Inc()
		h.log.Error("saving settings", "error", err)
		return nil, huma.Error500InternalServerError("failed to save settings")
	}

	metrics.SettingsSavesTotal.WithLabelValues(saveResultOK).Inc()
	metrics.SettingsValid.Set(1)
	h.log.Info("settings updated", "merchant_id", creds.MerchantID, "api_uri", creds.BaseURI)

	return settingsOutput(creds), nil
}

// Status reports whether the stored credentials are complete.
func (h *SettingsHandler) Status(ctx context.Context, _ *struct{}) (*SettingsStatusOutput, error) {
	creds, err := h.store.Load(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to load settings")
	}

	resp := &SettingsStatusOutput{}
	resp.Body.Valid = creds.IsValid()
	if resp.Body.Valid {
		metrics.SettingsValid.Set(1)
	} else {
		metrics.SettingsValid.Set(0)
	}
	return resp, nil
}

// fieldDetails converts credential validation failures into huma error
// details located at the offending body field.
func fieldDetails(err error) []error {
	fields := domain.FieldErrors(err)
	details := make([]error, 0, len(fields))
	for _, fe := range fields {
		details = append(details, &huma.ErrorDetail{
			Message:  fe.Message,
			Location: "body." + fe.Field,
		})
	}
	return details
}

// RegisterSettingsRoutes registers the settings endpoints with the Huma API.
func RegisterSettingsRoutes(api huma.API, h *SettingsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get OPay settings",
		Description: "Returns the stored OPay credentials. The token is masked.",
		Tags:        []string{"settings"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings",
		Summary:     "Update OPay settings",
		Description: "Validates and stores the token, merchant ID, and API URI. " +
			"Each empty value is reported as a separate error.",
		Tags:   []string{"settings"},
		Errors: []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "get-settings-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings/status",
		Summary:     "Check OPay settings",
		Description: "Reports whether all three OPay settings are set.",
		Tags:        []string{"settings"},
	}, h.Status)
}
