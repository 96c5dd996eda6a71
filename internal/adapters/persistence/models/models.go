package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"diglab-api/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Person registry
// ============================================================

// Person represents the persons table, keyed by personnummer.
type Person struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Personnummer string     `gorm:"uniqueIndex;size:11;not null" json:"personnummer"`
	FirstName    string     `gorm:"size:100;not null" json:"firstName"`
	MiddleName   *string    `gorm:"size:100" json:"middleName"`
	LastName     string     `gorm:"size:100;not null" json:"lastName"`
	AddressLine1 *string    `gorm:"size:200" json:"addressLine1"`
	AddressLine2 *string    `gorm:"size:200" json:"addressLine2"`
	PostalCode   *string    `gorm:"size:4" json:"postalCode"`
	City         *string    `gorm:"size:100" json:"city"`
	Email        *string    `gorm:"size:100" json:"email"`
	Phone        *string    `gorm:"size:20" json:"phone"`
	DateOfBirth  *string    `gorm:"size:10" json:"dateOfBirth"`
	CreatedAtUtc time.Time  `gorm:"autoCreateTime" json:"createdAtUtc"`
	UpdatedAtUtc *time.Time `json:"updatedAtUtc"`
}

func (Person) TableName() string {
	return "persons"
}

// FullName joins the name fields for the order snapshot.
func (p *Person) FullName() string {
	if p.MiddleName != nil && *p.MiddleName != "" {
		return p.FirstName + " " + *p.MiddleName + " " + p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// ============================================================
// Orders & results
// ============================================================

// StringList stores an ordered list of strings as a JSON text column.
type StringList []string

// Value serializes the list for storage.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan deserializes the stored JSON back into the list.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for StringList")
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// Order represents the orders table. One row per lab requisition;
// mutated only by finalization.
type Order struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	LabNumber          string     `gorm:"uniqueIndex;size:32;not null" json:"labNumber"`
	Name               string     `gorm:"size:200;not null" json:"name"`
	Personnummer       *string    `gorm:"size:11" json:"personnummer"`
	Date               string     `gorm:"size:10;not null" json:"date"` // YYYY-MM-DD
	Time               string     `gorm:"size:5;not null" json:"time"`  // HH:MM
	Diagnoses          StringList `gorm:"type:text;not null" json:"diagnoses"`
	AnyOverridden      bool       `gorm:"default:false" json:"anyOverridden"`
	RequisitionPdfPath *string    `gorm:"type:text" json:"-"`
	ResultsPdfPath     *string    `gorm:"type:text" json:"-"`
	ResultsSaved       bool       `gorm:"default:false" json:"resultsSaved"`
	CreatedAtUtc       time.Time  `gorm:"autoCreateTime" json:"createdAtUtc"`

	Results []OrderResult `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"results,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderResult is one per-diagnosis outcome row. The full set is
// replaced wholesale on every finalize.
type OrderResult struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"index;not null" json:"-"`
	Diagnosis  string      `gorm:"size:100;not null" json:"diagnosis"`
	Auto       domain.Mark `gorm:"size:20;not null" json:"auto"`
	Final      domain.Mark `gorm:"size:20;not null" json:"final"`
	Overridden bool        `gorm:"not null" json:"overridden"`
}

func (OrderResult) TableName() string {
	return "order_results"
}

// OrderListItem DTO for history listings
type OrderListItem struct {
	LabNumber    string    `json:"labNumber"`
	Name         string    `json:"name"`
	Personnummer *string   `json:"personnummer"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Diagnoses    []string  `json:"diagnoses"`
	CreatedAtUtc time.Time `json:"createdAtUtc"`
}

func (o *Order) ToListItem() *OrderListItem {
	return &OrderListItem{
		LabNumber:    o.LabNumber,
		Name:         o.Name,
		Personnummer: o.Personnummer,
		Date:         o.Date,
		Time:         o.Time,
		Diagnoses:    o.Diagnoses,
		CreatedAtUtc: o.CreatedAtUtc,
	}
}

// ResultRow DTO mirrors an OrderResult without its surrogate keys.
type ResultRow struct {
	Diagnosis  string `json:"diagnosis"`
	Auto       string `json:"auto"`
	Final      string `json:"final"`
	Overridden bool   `json:"overridden"`
}

// OrderDetails DTO for the single-order view
type OrderDetails struct {
	LabNumber     string      `json:"labNumber"`
	Requested     []string    `json:"requested"`
	Results       []ResultRow `json:"results"`
	OverriddenAny bool        `json:"overriddenAny"`
	PdfURL        string      `json:"pdfUrl"`
}

func (o *Order) ToDetails() *OrderDetails {
	rows := make([]ResultRow, len(o.Results))
	for i, r := range o.Results {
		rows[i] = ResultRow{
			Diagnosis:  r.Diagnosis,
			Auto:       string(r.Auto),
			Final:      string(r.Final),
			Overridden: r.Overridden,
		}
	}
	return &OrderDetails{
		LabNumber:     o.LabNumber,
		Requested:     o.Diagnoses,
		Results:       rows,
		OverriddenAny: o.AnyOverridden,
		PdfURL:        "/api/orders/" + o.LabNumber + "/pdf",
	}
}

// ============================================================
// Staff accounts
// ============================================================

// Profession values for staff accounts
const (
	ProfessionNurse       = "Nurse"
	ProfessionDoctor      = "Doctor"
	ProfessionBioengineer = "Bioengineer"
	ProfessionOther       = "Other"
)

// ParseProfession normalizes a profession name, defaulting to Other.
func ParseProfession(s string) string {
	switch {
	case strings.EqualFold(s, ProfessionNurse):
		return ProfessionNurse
	case strings.EqualFold(s, ProfessionDoctor):
		return ProfessionDoctor
	case strings.EqualFold(s, ProfessionBioengineer):
		return ProfessionBioengineer
	default:
		return ProfessionOther
	}
}

// User represents users table. Username doubles as the worker ID so the
// login handle is guaranteed unique inside the organisation.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	FirstName    string    `gorm:"size:100;not null" json:"firstName"`
	LastName     string    `gorm:"size:100;not null" json:"lastName"`
	WorkerID     string    `gorm:"size:50;not null" json:"workerId"`
	HprNumber    string    `gorm:"size:20" json:"hprNumber"`
	Profession   string    `gorm:"size:20;default:'Other'" json:"profession"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;default:'user'" json:"role"`
	CreatedAtUtc time.Time `gorm:"autoCreateTime" json:"createdAtUtc"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	WorkerID   string `json:"workerId"`
	HprNumber  string `json:"hprNumber"`
	Profession string `json:"profession"`
	Role       string `json:"role"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		WorkerID:   u.WorkerID,
		HprNumber:  u.HprNumber,
		Profession: u.Profession,
		Role:       u.Role,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Person{},
		&Order{},
		&OrderResult{},
		&User{},
		&RefreshToken{},
	)
}
