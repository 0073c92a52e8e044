package jobboard

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse phone numbers written without an
// international prefix.
const DefaultPhoneRegion = "FR"

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// Validate will run validation rules using the default phone region.
func (r CandidateRegistration) Validate() error {
	return r.ValidateIn(DefaultPhoneRegion)
}

// ValidateIn validates the registration parsing the phone number in region.
func (r CandidateRegistration) ValidateIn(region string) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhone(region))),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.PasswordConfirmation,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

// Validate will run validation rules using the default phone region.
func (r RecruiterRegistration) Validate() error {
	return r.ValidateIn(DefaultPhoneRegion)
}

// ValidateIn validates the candidate fields and the company name.
func (r RecruiterRegistration) ValidateIn(region string) error {
	errs := validation.Errors{}
	if err := r.CandidateRegistration.ValidateIn(region); err != nil {
		var fieldErrs validation.Errors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for k, v := range fieldErrs {
			errs[k] = v
		}
	}
	if err := validation.Validate(r.CompanyName, validation.Required, validation.Length(2, 200)); err != nil {
		errs["nom_entreprise"] = err
	}
	return errs.Filter()
}

// GuestApplication is an application sent without an account.
type GuestApplication struct {
	OfferID     int64
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	CountryCode string
	CoverLetter string
	CV          *Attachment
}

// Attachment is an uploaded file.
type Attachment struct {
	Name    string
	Content []byte
}

// Validate will run validation rules
func (g GuestApplication) Validate() error {
	region := g.CountryCode
	if region == "" {
		region = DefaultPhoneRegion
	}
	return validation.ValidateStruct(&g,
		validation.Field(&g.OfferID, validation.Required),
		validation.Field(&g.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&g.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&g.Email, validation.Required, is.Email),
		validation.Field(&g.Phone, validation.By(ValidatePhone(region))),
		validation.Field(&g.CV, validation.Required),
	)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidatePhone accepts empty values and numbers valid for region.
func ValidatePhone(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		num, err := phonenumbers.Parse(s, strings.ToUpper(region))
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}

// NormalizePhone returns the E164 form of a valid number, or the input
// unchanged when it cannot be parsed.
func NormalizePhone(raw, region string) string {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// AsValidationFailure converts ozzo validation errors into a
// ValidationFailed rich error. Other errors are returned unchanged.
func AsValidationFailure(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		var rich *goerrors.Error
		if goerrors.As(err, &rich) {
			return err
		}
		return NewValidationError(err.Error(), nil)
	}

	fields := make(map[string][]string, len(fieldErrs))
	for name, ferr := range fieldErrs {
		if ferr == nil {
			continue
		}
		fields[name] = append(fields[name], ferr.Error())
	}
	return NewValidationError("", fields)
}
