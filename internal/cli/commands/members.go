package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/models"
)

// NewMembersCmd creates the members command group. Members are read-only.
func NewMembersCmd(factory EnvFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Browse members",
	}

	cmd.AddCommand(newMembersListCmd(factory))
	cmd.AddCommand(newShowCmd(factory, "member", showMember))

	return cmd
}

func newMembersListCmd(factory EnvFactory) *cobra.Command {
	var search, memberType string
	var page int

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List members",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(factory, cmd, func(env *Env) error {
				q := client.ListQuery{
					Search:     strings.TrimSpace(search),
					MemberType: models.MembershipType(strings.ToUpper(memberType)),
					Page:       page,
				}
				return runList(cmd.Context(), env, q, listMembers)
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Search by name, email or member ID")
	cmd.Flags().StringVar(&memberType, "type", "", "Filter by primary membership type (GENERAL, LIFETIME, ASSOCIATE)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")

	return cmd
}

func listMembers(ctx context.Context, api *client.Client, q client.ListQuery, w io.Writer) (models.PaginationMeta, error) {
	page, err := api.ListMembers(ctx, q)
	if err != nil {
		return models.PaginationMeta{}, err
	}
	if len(page.Data) == 0 {
		fmt.Fprintln(w, "No members found.")
		return page.Meta, nil
	}

	tw := newTable(w, "ID", "MEMBER ID", "NAME", "EMAIL", "TYPE", "JOINED")
	for _, m := range page.Data {
		memberType := "-"
		if m.PrimaryMemberType != nil {
			memberType = m.PrimaryMemberType.Label()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, str(m.MemberID), m.Name, m.Email, memberType, date(m.CreatedAt))
	}
	return page.Meta, tw.Flush()
}

func showMember(ctx context.Context, api *client.Client, id int64, w io.Writer) error {
	m, err := api.GetMember(ctx, id)
	if err != nil {
		return err
	}

	primary, secondary := "-", "-"
	if m.PrimaryMemberType != nil {
		primary = m.PrimaryMemberType.Label()
	}
	if m.SecondaryMemberType != nil {
		secondary = m.SecondaryMemberType.Name
	}

	printFields(w,
		"ID", strconv.FormatInt(m.ID, 10),
		"Member ID", str(m.MemberID),
		"Name", m.Name,
		"Email", m.Email,
		"Primary type", primary,
		"Secondary type", secondary,
		"Email verified", timestamp(m.EmailVerifiedAt),
		"Joined", date(m.CreatedAt),
	)
	return nil
}
