package resources

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/models"
)

// Lister is the list half of the API client
type Lister interface {
	ListApplications(ctx context.Context, q client.ListQuery) (*models.Page[models.MembershipApplication], error)
	ListMembers(ctx context.Context, q client.ListQuery) (*models.Page[models.Member], error)
	ListPayments(ctx context.Context, q client.ListQuery) (*models.Page[models.Payment], error)
	ListSelfDeclarations(ctx context.Context, q client.ListQuery) (*models.Page[models.SelfDeclaration], error)
}

// Views bundles the four independent list views
type Views struct {
	Applications     *ListView[models.MembershipApplication]
	Members          *ListView[models.Member]
	Payments         *ListView[models.Payment]
	SelfDeclarations *ListView[models.SelfDeclaration]

	// MemberSearch debounces the live member search box
	MemberSearch *Debouncer
}

func NewViews(api Lister, zlog zerolog.Logger) *Views {
	return &Views{
		Applications:     NewListView[models.MembershipApplication](string(client.Applications), api.ListApplications, zlog),
		Members:          NewListView[models.Member](string(client.Members), api.ListMembers, zlog),
		Payments:         NewListView[models.Payment](string(client.Payments), api.ListPayments, zlog),
		SelfDeclarations: NewListView[models.SelfDeclaration](string(client.SelfDeclarations), api.ListSelfDeclarations, zlog),
		MemberSearch:     NewDebouncer(DefaultDebounce),
	}
}
