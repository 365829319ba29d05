package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Types lists the contract types a draft may select, in display order.
var Types = []string{
	"Prestação de Serviço",
	"Aluguel",
	"Venda",
	"Consultoria",
	"Freelance",
	"Parceria",
	"Licenciamento",
	"Outros",
}

var (
	ErrNotFound     = errors.New("contract: not found")
	ErrInvalidInput = errors.New("contract: invalid input")
	ErrUnknownType  = errors.New("contract: unknown contract type")
)

// Draft is the unsaved contract edited by the wizard. Its JSON form is the
// payload stored with each record, so field names are part of the storage format.
//
// A clause value (CancellationFineValue, DelayFineValue) only matters when its
// toggle is set; it is never required.
type Draft struct {
	ContractorName     string `json:"contractorName"`
	ContractorDocument string `json:"contractorDocument"`
	ContractorAddress  string `json:"contractorAddress"`
	ContractedName     string `json:"contractedName"`
	ContractedDocument string `json:"contractedDocument"`
	ContractedAddress  string `json:"contractedAddress"`

	ContractType   string `json:"contractType"`
	ContractObject string `json:"contractObject"`
	Value          string `json:"value"`
	PaymentMethod  string `json:"paymentMethod"`
	Duration       string `json:"duration"`
	Location       string `json:"location"`
	Date           string `json:"date"`

	CancellationFine      bool   `json:"cancellationFine"`
	CancellationFineValue string `json:"cancellationFineValue"`
	DelayFine             bool   `json:"delayFine"`
	DelayFineValue        string `json:"delayFineValue"`
	Confidentiality       bool   `json:"confidentiality"`
	OnlineSignature       bool   `json:"onlineSignature"`
}

// Validate checks the enumerated fields. Empty fields are allowed; required
// fields are enforced per wizard step.
func (d Draft) Validate() error {
	if d.ContractType != "" && !KnownType(d.ContractType) {
		return fmt.Errorf("%w: %q", ErrUnknownType, d.ContractType)
	}
	return nil
}

// KnownType reports whether name is one of Types.
func KnownType(name string) bool {
	for _, t := range Types {
		if t == name {
			return true
		}
	}
	return false
}

// DecodeDraft reads a draft back from a stored payload.
func DecodeDraft(payload json.RawMessage) (Draft, error) {
	var d Draft
	if len(payload) == 0 {
		return d, fmt.Errorf("%w: empty payload", ErrInvalidInput)
	}
	if err := json.Unmarshal(payload, &d); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return d, nil
}

// Record is a saved contract. Records are never updated in place.
type Record struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	ArtifactRef *string         `json:"artifact_ref"`
}

// NewRecord is the insert shape; ID and CreatedAt are assigned by the store.
type NewRecord struct {
	OwnerID     string
	Title       string
	Payload     json.RawMessage
	ArtifactRef *string
}

// Validate checks the fields every store requires before inserting.
func (n NewRecord) Validate() error {
	if n.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !json.Valid(n.Payload) {
		return fmt.Errorf("%w: payload must be valid JSON", ErrInvalidInput)
	}
	return nil
}
