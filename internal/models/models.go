package models

import (
	"strings"
	"time"
)

// Role is the account role reported by the membership API
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleMember     Role = "member"
)

// User is the authenticated account as returned by GET /api/user and POST /api/login
type User struct {
	ID                    int64      `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	Role                  Role       `json:"role"`
	PrimaryMemberType     *string    `json:"primary_member_type"`
	SecondaryMemberTypeID *int64     `json:"secondary_member_type_id"`
	MemberID              *string    `json:"member_id"`
	EmailVerifiedAt       *time.Time `json:"email_verified_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// IsSuperAdmin reports whether u may use the console
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

// LoginRequest is the body of POST /api/login
type LoginRequest struct {
	EmailOrPhone string `json:"email_or_phone" validate:"required"`
	Password     string `json:"password" validate:"required"`
}

// LoginResponse is returned by POST /api/login
type LoginResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// MessageResponse is returned by POST /api/logout and other acknowledgement endpoints
type MessageResponse struct {
	Message string `json:"message"`
}

// ReviewStatus is the review state shared by applications, payments and self-declarations
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "PENDING"
	StatusApproved ReviewStatus = "APPROVED"
	StatusRejected ReviewStatus = "REJECTED"
)

// ReviewStatuses lists every review status in display order
var ReviewStatuses = []ReviewStatus{StatusPending, StatusApproved, StatusRejected}

var statusLabels = map[ReviewStatus]string{
	StatusPending:  "Pending",
	StatusApproved: "Approved",
	StatusRejected: "Rejected",
}

// Label returns the display label
func (s ReviewStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return humanize(string(s))
}

// Valid reports whether s is a known status
func (s ReviewStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// MembershipType is the primary membership tier
type MembershipType string

const (
	MembershipGeneral   MembershipType = "GENERAL"
	MembershipLifetime  MembershipType = "LIFETIME"
	MembershipAssociate MembershipType = "ASSOCIATE"
)

// MembershipTypes lists every membership type in display order
var MembershipTypes = []MembershipType{MembershipGeneral, MembershipLifetime, MembershipAssociate}

var membershipTypeLabels = map[MembershipType]string{
	MembershipGeneral:   "General",
	MembershipLifetime:  "Lifetime",
	MembershipAssociate: "Associate",
}

// Label returns the display label
func (m MembershipType) Label() string {
	if label, ok := membershipTypeLabels[m]; ok {
		return label
	}
	return humanize(string(m))
}

// Valid reports whether m is a known membership type
func (m MembershipType) Valid() bool {
	_, ok := membershipTypeLabels[m]
	return ok
}

// Gender of an applicant
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Label returns the display label
func (g Gender) Label() string {
	return humanize(string(g))
}

// TShirtSize is one of XXXL, XXL, XL, L, M, S
type TShirtSize string

// BloodGroup is one of A+, A-, B+, B-, AB+, AB-, O+, O-
type BloodGroup string

// StudentshipProofType is the kind of document attached as proof of studentship
type StudentshipProofType string

const (
	ProofJSC               StudentshipProofType = "JSC"
	ProofEight             StudentshipProofType = "EIGHT"
	ProofSSC               StudentshipProofType = "SSC"
	ProofMetricCertificate StudentshipProofType = "METRIC_CERTIFICATE"
	ProofMarkSheet         StudentshipProofType = "MARK_SHEET"
	ProofOthers            StudentshipProofType = "OTHERS"
)

// Label returns the display label
func (p StudentshipProofType) Label() string {
	return humanize(string(p))
}

// PaymentPurpose is the reason a payment was made, as reported by the API
type PaymentPurpose string

// Label returns the display label
func (p PaymentPurpose) Label() string {
	return humanize(string(p))
}

// MembershipApplication is a request to join
type MembershipApplication struct {
	ID                       int64                 `json:"id"`
	MembershipType           MembershipType        `json:"membership_type"`
	FullName                 string                `json:"full_name"`
	NameBangla               *string               `json:"name_bangla"`
	FatherName               *string               `json:"father_name"`
	MotherName               *string               `json:"mother_name"`
	Gender                   Gender                `json:"gender"`
	JSCYear                  *int                  `json:"jsc_year"`
	SSCYear                  *int                  `json:"ssc_year"`
	StudentshipProofType     *StudentshipProofType `json:"studentship_proof_type"`
	StudentshipProofFile     *string               `json:"studentship_proof_file"`
	HighestEducationalDegree *string               `json:"highest_educational_degree"`
	PresentAddress           *string               `json:"present_address"`
	PermanentAddress         *string               `json:"permanent_address"`
	Email                    *string               `json:"email"`
	MobileNumber             *string               `json:"mobile_number"`
	Profession               *string               `json:"profession"`
	Designation              *string               `json:"designation"`
	InstituteName            *string               `json:"institute_name"`
	TShirtSize               *TShirtSize           `json:"t_shirt_size"`
	BloodGroup               *BloodGroup           `json:"blood_group"`
	EntryFee                 float64               `json:"entry_fee"`
	YearlyFee                float64               `json:"yearly_fee"`
	PaymentYears             int                   `json:"payment_years"`
	TotalPaidAmount          float64               `json:"total_paid_amount"`
	ReceiptFile              *string               `json:"receipt_file"`
	Status                   ReviewStatus          `json:"status"`
	ApprovedBy               *int64                `json:"approved_by"`
	ApprovedAt               *time.Time            `json:"approved_at"`
	CreatedAt                time.Time             `json:"created_at"`
	UpdatedAt                time.Time             `json:"updated_at"`
}

// SecondaryMemberType is an additional membership category
type SecondaryMemberType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Member is an approved member account
type Member struct {
	ID                  int64                `json:"id"`
	Name                string               `json:"name"`
	Email               string               `json:"email"`
	Role                Role                 `json:"role"`
	PrimaryMemberType   *MembershipType      `json:"primary_member_type"`
	SecondaryMemberType *SecondaryMemberType `json:"secondary_member_type"`
	MemberID            *string              `json:"member_id"`
	EmailVerifiedAt     *time.Time           `json:"email_verified_at"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// Payment is a fee payment awaiting or past review
type Payment struct {
	ID               int64          `json:"id"`
	MemberID         *string        `json:"member_id"`
	Name             string         `json:"name"`
	Address          *string        `json:"address"`
	MobileNumber     *string        `json:"mobile_number"`
	PaymentPurpose   PaymentPurpose `json:"payment_purpose"`
	PaymentAmount    float64        `json:"payment_amount"`
	PaymentProofFile *string        `json:"payment_proof_file"`
	Status           ReviewStatus   `json:"status"`
	ApprovedBy       *int64         `json:"approved_by"`
	ApprovedAt       *time.Time     `json:"approved_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// PaymentUpdate carries the editable fields of PUT /api/payments/{id}
type PaymentUpdate struct {
	Name           *string         `json:"name,omitempty"`
	Address        *string         `json:"address,omitempty"`
	MobileNumber   *string         `json:"mobile_number,omitempty"`
	PaymentPurpose *PaymentPurpose `json:"payment_purpose,omitempty"`
	PaymentAmount  *float64        `json:"payment_amount,omitempty" validate:"omitempty,gt=0"`
}

// UserRef is the short user shape embedded in other resources
type UserRef struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	MemberID *string `json:"member_id,omitempty"`
}

// SelfDeclaration is a member's claim to a secondary membership type
type SelfDeclaration struct {
	ID                  int64                `json:"id"`
	User                *UserRef             `json:"user"`
	Name                string               `json:"name"`
	SecondaryMemberType *SecondaryMemberType `json:"secondary_member_type"`
	Date                *string              `json:"date"`
	SignatureFile       *string              `json:"signature_file"`
	Status              ReviewStatus         `json:"status"`
	RejectedReason      *string              `json:"rejected_reason"`
	ApprovedBy          *UserRef             `json:"approved_by"`
	ApprovedAt          *time.Time           `json:"approved_at"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// PaginationLinks is the links block of a paginated envelope
type PaginationLinks struct {
	First *string `json:"first"`
	Last  *string `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

// PaginationMeta is the meta block of a paginated envelope
type PaginationMeta struct {
	CurrentPage int    `json:"current_page"`
	From        int    `json:"from"`
	To          int    `json:"to"`
	LastPage    int    `json:"last_page"`
	PerPage     int    `json:"per_page"`
	Total       int    `json:"total"`
	Path        string `json:"path"`
}

// Page is the paginated list envelope
type Page[T any] struct {
	Data  []T             `json:"data"`
	Links PaginationLinks `json:"links"`
	Meta  PaginationMeta  `json:"meta"`
}

// Envelope wraps a single resource as {data: T}
type Envelope[T any] struct {
	Data T `json:"data"`
}

// ApplicationDecision is returned by approve/reject on an application
type ApplicationDecision struct {
	Message     string                `json:"message"`
	Application MembershipApplication `json:"application"`
	User        *UserRef              `json:"user,omitempty"`
}

// PaymentDecision is returned by approve/reject on a payment
type PaymentDecision struct {
	Message string  `json:"message"`
	Payment Payment `json:"payment"`
}

// SelfDeclarationDecision is returned by approve/reject on a self-declaration
type SelfDeclarationDecision struct {
	Message         string          `json:"message"`
	SelfDeclaration SelfDeclaration `json:"self_declaration"`
}

// humanize turns METRIC_CERTIFICATE into "Metric Certificate"
func humanize(value string) string {
	if value == "" {
		return ""
	}
	words := strings.Split(strings.ToLower(value), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
