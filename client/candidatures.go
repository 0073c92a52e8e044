package client

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-jobboard"
)

// ListCandidatures lists the applications visible to the signed in user.
// A non-zero offerID restricts the list to one offer.
func (c *Client) ListCandidatures(ctx context.Context, offerID int64) ([]jobboard.Candidature, error) {
	query := map[string]string{}
	if offerID != 0 {
		query["offre_id"] = formatID(offerID)
	}
	var out []jobboard.Candidature
	if err := c.get(ctx, "candidatures", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCandidatureStatus implements jobboard.CandidatureWorkflow with
// PATCH candidatures/{id}/statut.
func (c *Client) UpdateCandidatureStatus(ctx context.Context, id int64, status jobboard.CandidatureStatus, message string) (*jobboard.Candidature, error) {
	payload := map[string]string{"statut": string(status)}
	if m := strings.TrimSpace(message); m != "" {
		payload["message_statut"] = m
	}
	body, err := c.Do(ctx, http.MethodPatch, "candidatures/{id}/statut", func(r *resty.Request) {
		jsonBody(payload)(r)
		r.SetPathParam("id", formatID(id))
	})
	if err != nil {
		return nil, err
	}
	return decodeOptional[jobboard.Candidature](body)
}

// Application is a candidature sent by a signed in candidate.
type Application struct {
	OfferID     int64
	CoverLetter string
	CV          *jobboard.Attachment
}

// Apply posts a multipart candidature to candidatures.
func (c *Client) Apply(ctx context.Context, app Application) (*jobboard.Candidature, error) {
	if app.OfferID == 0 {
		return nil, jobboard.NewValidationError("", map[string][]string{
			"offre_id": {"cannot be blank"},
		})
	}
	fields := map[string]string{"offre_id": formatID(app.OfferID)}
	coverLetter(fields, app.CoverLetter)
	return c.postApplication(ctx, "candidatures", fields, app.CV)
}

// ApplyAsGuest validates and posts an application without an account to
// candidatures/guest. The answer carries the tracking code.
func (c *Client) ApplyAsGuest(ctx context.Context, app jobboard.GuestApplication) (*jobboard.Candidature, error) {
	if err := app.Validate(); err != nil {
		return nil, jobboard.AsValidationFailure(err)
	}

	region := app.CountryCode
	if region == "" {
		region = jobboard.DefaultPhoneRegion
	}
	fields := map[string]string{
		"offre_id": formatID(app.OfferID),
		"nom":      strings.TrimSpace(app.LastName),
		"prenom":   strings.TrimSpace(app.FirstName),
		"email":    strings.TrimSpace(app.Email),
	}
	if app.Phone != "" {
		fields["telephone"] = jobboard.NormalizePhone(app.Phone, region)
	}
	if app.CountryCode != "" {
		fields["pays_code"] = strings.ToUpper(app.CountryCode)
	}
	coverLetter(fields, app.CoverLetter)
	return c.postApplication(ctx, "candidatures/guest", fields, app.CV)
}

func coverLetter(fields map[string]string, text string) {
	if t := strings.TrimSpace(text); t != "" {
		fields["lm_source"] = "text"
		fields["lettre_motivation"] = t
		return
	}
	fields["lm_source"] = "none"
}

func (c *Client) postApplication(ctx context.Context, path string, fields map[string]string, cv *jobboard.Attachment) (*jobboard.Candidature, error) {
	if cv != nil {
		fields["cv_source"] = "upload"
	}
	body, err := c.Do(ctx, http.MethodPost, path, func(r *resty.Request) {
		r.SetMultipartFormData(fields)
		if cv != nil {
			r.SetFileReader("cv", cv.Name, bytes.NewReader(cv.Content))
		}
	})
	if err != nil {
		return nil, err
	}
	return decodeOptional[jobboard.Candidature](body)
}

// TrackedCandidature is the public view returned for a tracking code.
type TrackedCandidature struct {
	jobboard.Candidature
	Candidate struct {
		FirstName string `json:"prenom"`
		LastName  string `json:"nom"`
		Email     string `json:"email"`
		Phone     string `json:"telephone"`
	} `json:"candidat"`
	Offer struct {
		Title    string `json:"titre"`
		Location string `json:"lieu"`
		Contract string `json:"type_contrat"`
	} `json:"offre"`
	UpdatedAt jobboard.Timestamp `json:"date_mise_a_jour"`
}

// Track reads an application by its tracking code. No account is needed.
func (c *Client) Track(ctx context.Context, code string) (*TrackedCandidature, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, jobboard.NewValidationError("", map[string][]string{
			"code_suivi": {"cannot be blank"},
		})
	}
	body, err := c.Do(ctx, http.MethodGet, "candidatures/suivi/{code}", func(r *resty.Request) {
		r.SetPathParam("code", code)
	})
	if err != nil {
		return nil, err
	}
	out, err := decodeOptional[TrackedCandidature](body)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, jobboard.NewKindError(jobboard.ErrHTTP, http.StatusNotFound, nil, map[string]any{
			"code_suivi": code,
		})
	}
	return out, nil
}
