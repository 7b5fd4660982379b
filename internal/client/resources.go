package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/memberdesk/memberdesk/internal/models"
)

// ListQuery holds the filters understood by the list endpoints.
// Zero values are omitted from the query string; page 1 is never sent.
type ListQuery struct {
	Status     models.ReviewStatus   `form:"status" validate:"omitempty,reviewstatus"`
	Search     string                `form:"search" validate:"max=255"`
	MemberType models.MembershipType `form:"type" validate:"omitempty,membershiptype"`
	Page       int                   `form:"page" validate:"gte=0"`
}

// Values encodes q as URL query parameters
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.MemberType != "" {
		v.Set("primary_member_type", string(q.MemberType))
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v
}

func list[T any](ctx context.Context, c *Client, r Resource, q ListQuery) (*models.Page[T], error) {
	var page models.Page[T]
	if err := c.Request(ctx, http.MethodGet, r.listPath(), nil, q.Values(), &page); err != nil {
		return nil, err
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return &page, nil
}

func get[T any](ctx context.Context, c *Client, r Resource, id int64) (*T, error) {
	var env models.Envelope[T]
	if err := c.Request(ctx, http.MethodGet, r.itemPath(id), nil, nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func act[T any](ctx context.Context, c *Client, r Resource, id int64, action string, body any) (*T, error) {
	var resp T
	if err := c.Request(ctx, http.MethodPost, r.actionPath(id, action), body, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListApplications returns one page of membership applications
func (c *Client) ListApplications(ctx context.Context, q ListQuery) (*models.Page[models.MembershipApplication], error) {
	return list[models.MembershipApplication](ctx, c, Applications, q)
}

// GetApplication returns a single membership application
func (c *Client) GetApplication(ctx context.Context, id int64) (*models.MembershipApplication, error) {
	return get[models.MembershipApplication](ctx, c, Applications, id)
}

// ApproveApplication approves an application, creating the member account server-side
func (c *Client) ApproveApplication(ctx context.Context, id int64) (*models.ApplicationDecision, error) {
	return act[models.ApplicationDecision](ctx, c, Applications, id, "approve", nil)
}

// RejectApplication rejects an application
func (c *Client) RejectApplication(ctx context.Context, id int64) (*models.ApplicationDecision, error) {
	return act[models.ApplicationDecision](ctx, c, Applications, id, "reject", nil)
}

// ListMembers returns one page of members
func (c *Client) ListMembers(ctx context.Context, q ListQuery) (*models.Page[models.Member], error) {
	return list[models.Member](ctx, c, Members, q)
}

// GetMember returns a single member
func (c *Client) GetMember(ctx context.Context, id int64) (*models.Member, error) {
	return get[models.Member](ctx, c, Members, id)
}

// ListPayments returns one page of payments
func (c *Client) ListPayments(ctx context.Context, q ListQuery) (*models.Page[models.Payment], error) {
	return list[models.Payment](ctx, c, Payments, q)
}

// GetPayment returns a single payment
func (c *Client) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return get[models.Payment](ctx, c, Payments, id)
}

// UpdatePayment applies a partial update to a payment
func (c *Client) UpdatePayment(ctx context.Context, id int64, update models.PaymentUpdate) (*models.Payment, error) {
	var env models.Envelope[models.Payment]
	if err := c.Request(ctx, http.MethodPut, Payments.itemPath(id), update, nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ApprovePayment approves a payment
func (c *Client) ApprovePayment(ctx context.Context, id int64) (*models.PaymentDecision, error) {
	return act[models.PaymentDecision](ctx, c, Payments, id, "approve", nil)
}

// RejectPayment rejects a payment
func (c *Client) RejectPayment(ctx context.Context, id int64) (*models.PaymentDecision, error) {
	return act[models.PaymentDecision](ctx, c, Payments, id, "reject", nil)
}

// ListSelfDeclarations returns one page of self-declarations
func (c *Client) ListSelfDeclarations(ctx context.Context, q ListQuery) (*models.Page[models.SelfDeclaration], error) {
	return list[models.SelfDeclaration](ctx, c, SelfDeclarations, q)
}

// GetSelfDeclaration returns a single self-declaration
func (c *Client) GetSelfDeclaration(ctx context.Context, id int64) (*models.SelfDeclaration, error) {
	return get[models.SelfDeclaration](ctx, c, SelfDeclarations, id)
}

// ApproveSelfDeclaration approves a self-declaration, assigning the secondary member type
func (c *Client) ApproveSelfDeclaration(ctx context.Context, id int64) (*models.SelfDeclarationDecision, error) {
	return act[models.SelfDeclarationDecision](ctx, c, SelfDeclarations, id, "approve", nil)
}

type rejectDeclarationRequest struct {
	RejectedReason string `json:"rejected_reason,omitempty"`
}

// RejectSelfDeclaration rejects a self-declaration with an optional reason
func (c *Client) RejectSelfDeclaration(ctx context.Context, id int64, reason string) (*models.SelfDeclarationDecision, error) {
	return act[models.SelfDeclarationDecision](ctx, c, SelfDeclarations, id, "reject", rejectDeclarationRequest{RejectedReason: reason})
}
