package backoffice

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type Customer struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Document string `json:"document"` // CPF or CNPJ
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	ZipCode  string `json:"zipCode,omitempty"`
	Active   bool   `json:"active"`
}

func (c Customer) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&c.Document, validation.Required, TaxID),
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.Phone, validation.Match(phoneRe)),
		validation.Field(&c.ZipCode, validation.Match(cepRe)),
	)
}

type Vehicle struct {
	ID         string `json:"id,omitempty"`
	CustomerID string `json:"customerId"`
	Plate      string `json:"plate"`
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	Year       int    `json:"year"`
	Color      string `json:"color,omitempty"`
	Active     bool   `json:"active"`
}

func (v Vehicle) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.CustomerID, validation.Required),
		validation.Field(&v.Plate, validation.Required, validation.Match(plateRe)),
		validation.Field(&v.Brand, validation.Required, validation.Length(1, 60)),
		validation.Field(&v.Model, validation.Required, validation.Length(1, 60)),
		validation.Field(&v.Year, validation.Required, validation.Min(1950), validation.Max(time.Now().Year()+1)),
	)
}

type ProductGroup struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

func (g ProductGroup) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Name, validation.Required, validation.Length(2, 80)),
		validation.Field(&g.Description, validation.Length(0, 500)),
	)
}

// Payment form kinds.
const (
	PaymentCash     = "cash"
	PaymentCredit   = "credit"
	PaymentDebit    = "debit"
	PaymentPix      = "pix"
	PaymentBankSlip = "bankSlip"
)

type PaymentForm struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	Installments int    `json:"installments"`
	Active       bool   `json:"active"`
}

func (p PaymentForm) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(2, 60)),
		validation.Field(&p.Kind, validation.Required, validation.In(PaymentCash, PaymentCredit, PaymentDebit, PaymentPix, PaymentBankSlip)),
		validation.Field(&p.Installments, validation.Min(1), validation.Max(24),
			validation.When(p.Kind != PaymentCredit, validation.Max(1).Error("only credit accepts installments"))),
	)
}

type Supplier struct {
	ID          string `json:"id,omitempty"`
	CompanyName string `json:"companyName"`
	TradeName   string `json:"tradeName,omitempty"`
	CNPJ        string `json:"cnpj"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Active      bool   `json:"active"`
}

func (s Supplier) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.CompanyName, validation.Required, validation.Length(2, 150)),
		validation.Field(&s.CNPJ, validation.Required, CNPJ),
		validation.Field(&s.Email, is.EmailFormat),
		validation.Field(&s.Phone, validation.Match(phoneRe)),
	)
}

// Service order statuses.
const (
	OrderOpen       = "open"
	OrderInProgress = "inProgress"
	OrderDone       = "done"
	OrderCancelled  = "cancelled"
)

type ServiceOrderItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	// UnitPrice in cents.
	UnitPrice int64 `json:"unitPrice"`
}

func (i ServiceOrderItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Description, validation.Required),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&i.UnitPrice, validation.Min(int64(0))),
	)
}

type ServiceOrder struct {
	ID          string             `json:"id,omitempty"`
	CustomerID  string             `json:"customerId"`
	VehicleID   string             `json:"vehicleId,omitempty"`
	Status      string             `json:"status"`
	Description string             `json:"description,omitempty"`
	Items       []ServiceOrderItem `json:"items"`
	OpenedAt    time.Time          `json:"openedAt,omitempty"`
}

// Total is the sum of the items in cents.
func (o ServiceOrder) Total() int64 {
	var t int64
	for _, it := range o.Items {
		t += int64(it.Quantity) * it.UnitPrice
	}
	return t
}

func (o ServiceOrder) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.CustomerID, validation.Required),
		validation.Field(&o.Status, validation.Required, validation.In(OrderOpen, OrderInProgress, OrderDone, OrderCancelled)),
		validation.Field(&o.Items, validation.Required),
	)
}

type CardBrand struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	// FeePercent is the acquirer fee, 0 to 100.
	FeePercent float64 `json:"feePercent"`
	Active     bool    `json:"active"`
}

func (b CardBrand) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Name, validation.Required, validation.Length(2, 40)),
		validation.Field(&b.FeePercent, validation.Min(0.0), validation.Max(100.0)),
	)
}

// Manual entry directions.
const (
	EntryIn  = "in"
	EntryOut = "out"
)

// ManualEntry is a manual stock movement.
type ManualEntry struct {
	ID        string    `json:"id,omitempty"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Direction string    `json:"direction"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

func (e ManualEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ProductID, validation.Required),
		validation.Field(&e.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&e.Direction, validation.Required, validation.In(EntryIn, EntryOut)),
		validation.Field(&e.Reason, validation.Required, validation.Length(3, 200)),
	)
}

// Onboarding registers a new company and its owner.
type Onboarding struct {
	ID          string `json:"id,omitempty"`
	CompanyName string `json:"companyName"`
	CNPJ        string `json:"cnpj"`
	OwnerName   string `json:"ownerName"`
	OwnerCPF    string `json:"ownerCpf"`
	Email       string `json:"email"`
	Plan        string `json:"plan"`
}

func (o Onboarding) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.CompanyName, validation.Required, validation.Length(2, 150)),
		validation.Field(&o.CNPJ, validation.Required, CNPJ),
		validation.Field(&o.OwnerName, validation.Required),
		validation.Field(&o.OwnerCPF, validation.Required, CPF),
		validation.Field(&o.Email, validation.Required, is.EmailFormat),
		validation.Field(&o.Plan, validation.Required, validation.In("basic", "pro", "enterprise")),
	)
}
