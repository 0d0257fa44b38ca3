package models

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	passwordCharset  = regexp.MustCompile(`^[A-Za-z\d!@#$%^&*]+$`)
	passwordSpecials = "!@#$%^&*"

	ErrInvalidPrice = errors.New("must be a number, optionally prefixed with ₹, or Free")
)

const (
	PasswordMinLength = 8
	// PasswordMaxBytes is the longest input bcrypt accepts.
	PasswordMaxBytes = 72
)

// Credentials is the body of the signup and signin requests.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims the email and lowercases it.
func (c *Credentials) Normalize() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
}

// Validate applies the signup rules.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email,
			validation.Required.Error("Email is required."),
			validation.Match(emailPattern).Error("Please enter a valid email address."),
		),
		validation.Field(&c.Password,
			validation.Required.Error("Password is required."),
			validation.By(passwordFitsHash),
			validation.By(strongPassword),
		),
	)
}

// ValidateSignIn only checks presence and email shape; the stored hash
// decides the rest.
func (c Credentials) ValidateSignIn() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email,
			validation.Required.Error("Email is required."),
			validation.Match(emailPattern).Error("Please enter a valid email address."),
		),
		validation.Field(&c.Password,
			validation.Required.Error("Password is required."),
			validation.By(passwordFitsHash),
		),
	)
}

func passwordFitsHash(value interface{}) error {
	password, _ := value.(string)
	if len(password) > PasswordMaxBytes {
		return errors.New("Password must be at most 72 characters long.")
	}
	return nil
}

func strongPassword(value interface{}) error {
	password, _ := value.(string)
	if password == "" {
		return nil
	}
	if len([]rune(password)) < PasswordMinLength {
		return errors.New("Password must be at least 8 characters long.")
	}
	if !passwordCharset.MatchString(password) {
		return errors.New("Password may only contain letters, digits and !@#$%^&*.")
	}

	var upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !upper || !digit || !special {
		return errors.New("Password must contain an uppercase letter, a number and a special character.")
	}
	return nil
}

// EventForm is the body of the create and update event requests.
type EventForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Category    string `json:"category"`
	City        string `json:"city"`
	Venue       string `json:"venue"`
	Price       string `json:"price"`
}

func (f *EventForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	f.Image = strings.TrimSpace(f.Image)
	f.Date = strings.TrimSpace(f.Date)
	f.Time = strings.TrimSpace(f.Time)
	f.Category = strings.TrimSpace(f.Category)
	f.City = strings.TrimSpace(f.City)
	f.Venue = strings.TrimSpace(f.Venue)
	f.Price = strings.TrimSpace(f.Price)
}

func (f EventForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Title, validation.Required, validation.RuneLength(2, 100)),
		validation.Field(&f.Description, validation.Required, validation.RuneLength(10, 500)),
		validation.Field(&f.Image, validation.Required, is.URL),
		validation.Field(&f.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&f.Time, validation.Required),
		validation.Field(&f.Category, validation.Required,
			validation.NotIn(CategoryAll).Error("must be a real category")),
		validation.Field(&f.City, validation.Required),
		validation.Field(&f.Venue, validation.Required),
		validation.Field(&f.Price, validation.Required, validation.By(func(value interface{}) error {
			_, err := ParsePrice(value.(string))
			return err
		})),
	)
}

// Apply overwrites the editable fields of e with the form values.
func (f EventForm) Apply(e *Event) error {
	price, err := ParsePrice(f.Price)
	if err != nil {
		return err
	}
	e.Title = f.Title
	e.Description = f.Description
	e.Image = f.Image
	e.Date = f.Date
	e.Time = f.Time
	e.Category = f.Category
	e.City = f.City
	e.Venue = f.Venue
	e.Price = price
	return nil
}

// ParsePrice accepts "Free", plain numbers and rupee amounts with thousands
// separators such as "₹1,499".
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "free") {
		return decimal.Zero, nil
	}
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")

	price, err := decimal.NewFromString(s)
	if err != nil || price.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	return price, nil
}

// ProfileForm is the body of the profile update request. Email is fixed at
// signup and not editable.
type ProfileForm struct {
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Bio      string  `json:"bio"`
	Location string  `json:"location"`
	Image    string  `json:"image"`
	Socials  Socials `json:"socials"`
}

func (f ProfileForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.RuneLength(0, 100)),
		validation.Field(&f.Phone, validation.RuneLength(0, 32)),
		validation.Field(&f.Bio, validation.RuneLength(0, 500)),
		validation.Field(&f.Location, validation.RuneLength(0, 100)),
		validation.Field(&f.Image, is.URL),
		validation.Field(&f.Socials),
	)
}

func (s Socials) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Website, is.URL),
	)
}

// Apply overwrites every editable profile field, including the ones left
// empty.
func (f ProfileForm) Apply(p *Profile) {
	p.Name = strings.TrimSpace(f.Name)
	p.Phone = strings.TrimSpace(f.Phone)
	p.Bio = strings.TrimSpace(f.Bio)
	p.Location = strings.TrimSpace(f.Location)
	p.Image = strings.TrimSpace(f.Image)
	p.Socials = f.Socials
}
