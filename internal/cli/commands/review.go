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

const maxReasonLength = 1000

// reviewable describes one collection that supports approve/reject
type reviewable struct {
	use     string
	aliases []string
	noun    string

	list    func(ctx context.Context, api *client.Client, q client.ListQuery, w io.Writer) (models.PaginationMeta, error)
	show    func(ctx context.Context, api *client.Client, id int64, w io.Writer) error
	approve func(ctx context.Context, api *client.Client, id int64) (string, error)
	reject  func(ctx context.Context, api *client.Client, id int64, reason string) (string, error)

	// takesReason enables --reason on reject
	takesReason bool
}

// NewApplicationsCmd creates the applications command group
func NewApplicationsCmd(factory EnvFactory) *cobra.Command {
	return newReviewCmd(factory, reviewable{
		use:     "applications",
		aliases: []string{"apps"},
		noun:    "application",
		list: func(ctx context.Context, api *client.Client, q client.ListQuery, w io.Writer) (models.PaginationMeta, error) {
			page, err := api.ListApplications(ctx, q)
			if err != nil {
				return models.PaginationMeta{}, err
			}
			if len(page.Data) == 0 {
				fmt.Fprintln(w, "No applications found.")
				return page.Meta, nil
			}
			tw := newTable(w, "ID", "NAME", "TYPE", "MOBILE", "PAID", "STATUS", "SUBMITTED")
			for _, a := range page.Data {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					a.ID, a.FullName, a.MembershipType.Label(), str(a.MobileNumber),
					money(a.TotalPaidAmount), a.Status.Label(), date(a.CreatedAt))
			}
			return page.Meta, tw.Flush()
		},
		show: func(ctx context.Context, api *client.Client, id int64, w io.Writer) error {
			a, err := api.GetApplication(ctx, id)
			if err != nil {
				return err
			}
			proof := "-"
			if a.StudentshipProofType != nil {
				proof = a.StudentshipProofType.Label()
			}
			printFields(w,
				"ID", strconv.FormatInt(a.ID, 10),
				"Name", a.FullName,
				"Name (Bangla)", str(a.NameBangla),
				"Membership type", a.MembershipType.Label(),
				"Status", a.Status.Label(),
				"Gender", a.Gender.Label(),
				"Father", str(a.FatherName),
				"Mother", str(a.MotherName),
				"JSC year", intOrDash(a.JSCYear),
				"SSC year", intOrDash(a.SSCYear),
				"Studentship proof", proof,
				"Email", str(a.Email),
				"Mobile", str(a.MobileNumber),
				"Profession", str(a.Profession),
				"Present address", str(a.PresentAddress),
				"Entry fee", money(a.EntryFee),
				"Yearly fee", fmt.Sprintf("%s x %d years", money(a.YearlyFee), a.PaymentYears),
				"Total paid", money(a.TotalPaidAmount),
				"Receipt", str(a.ReceiptFile),
				"Submitted", date(a.CreatedAt),
				"Approved at", timestamp(a.ApprovedAt),
			)
			return nil
		},
		approve: func(ctx context.Context, api *client.Client, id int64) (string, error) {
			resp, err := api.ApproveApplication(ctx, id)
			if err != nil {
				return "", err
			}
			return resp.Message, nil
		},
		reject: func(ctx context.Context, api *client.Client, id int64, _ string) (string, error) {
			resp, err := api.RejectApplication(ctx, id)
			if err != nil {
				return "", err
			}
			return resp.Message, nil
		},
	})
}

// NewPaymentsCmd creates the payments command group
func NewPaymentsCmd(factory EnvFactory) *cobra.Command {
	return newReviewCmd(factory, reviewable{
		use:  "payments",
		noun: "payment",
		list: func(ctx context.Context, api *client.Client, q client.ListQuery, w io.Writer) (models.PaginationMeta, error) {
			page, err := api.ListPayments(ctx, q)
			if err != nil {
				return models.PaginationMeta{}, err
			}
			if len(page.Data) == 0 {
				fmt.Fprintln(w, "No payments found.")
				return page.Meta, nil
			}
			tw := newTable(w, "ID", "NAME", "MEMBER ID", "PURPOSE", "AMOUNT", "STATUS", "SUBMITTED")
			for _, p := range page.Data {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Name, str(p.MemberID), p.PaymentPurpose.Label(),
					money(p.PaymentAmount), p.Status.Label(), date(p.CreatedAt))
			}
			return page.Meta, tw.Flush()
		},
		show: func(ctx context.Context, api *client.Client, id int64, w io.Writer) error {
			p, err := api.GetPayment(ctx, id)
			if err != nil {
				return err
			}
			printFields(w,
				"ID", strconv.FormatInt(p.ID, 10),
				"Name", p.Name,
				"Member ID", str(p.MemberID),
				"Status", p.Status.Label(),
				"Address", str(p.Address),
				"Mobile", str(p.MobileNumber),
				"Purpose", p.PaymentPurpose.Label(),
				"Amount", money(p.PaymentAmount),
				"Proof", str(p.PaymentProofFile),
				"Submitted", date(p.CreatedAt),
				"Approved at", timestamp(p.ApprovedAt),
			)
			return nil
		},
		approve: func(ctx context.Context, api *client.Client, id int64) (string, error) {
			resp, err := api.ApprovePayment(ctx, id)
			if err != nil {
				return "", err
			}
			return resp.Message, nil
		},
		reject: func(ctx context.Context, api *client.Client, id int64, _ string) (string, error) {
			resp, err := api.RejectPayment(ctx, id)
			if err != nil {
				return "", err
			}
			return resp.Message, nil
		},
	})
}

// NewSelfDeclarationsCmd creates the self-declarations command group
func NewSelfDeclarationsCmd(factory EnvFactory) *cobra.Command {
	return newReviewCmd(factory, reviewable{
		use:         "self-declarations",
		aliases:     []string{"declarations"},
		noun:        "self declaration",
		takesReason: true,
		list: func(ctx context.Context, api *client.Client, q client.ListQuery, w io.Writer) (models.PaginationMeta, error) {
			page, err := api.ListSelfDeclarations(ctx, q)
			if err != nil {
				return models.PaginationMeta{}, err
			}
			if len(page.Data) == 0 {
				fmt.Fprintln(w, "No self declarations found.")
				return page.Meta, nil
			}
			tw := newTable(w, "ID", "NAME", "MEMBER", "SECONDARY TYPE", "STATUS", "SUBMITTED")
			for _, d := range page.Data {
				member, secondary := "-", "-"
				if d.User != nil {
					member = d.User.Name
				}
				if d.SecondaryMemberType != nil {
					secondary = d.SecondaryMemberType.Name
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					d.ID, d.Name, member, secondary, d.Status.Label(), date(d.CreatedAt))
			}
			return page.Meta, tw.Flush()
		},
		show: func(ctx context.Context, api *client.Client, id int64, w io.Writer) error {
			d, err := api.GetSelfDeclaration(ctx, id)
			if err != nil {
				return err
			}
			member, secondary, reviewer := "-", "-", "-"
			if d.User != nil {
				member = fmt.Sprintf("%s <%s>", d.User.Name, d.User.Email)
			}
			if d.SecondaryMemberType != nil {
				secondary = d.SecondaryMemberType.Name
			}
			if d.ApprovedBy != nil {
				reviewer = d.ApprovedBy.Name
			}
			printFields(w,
				"ID", strconv.FormatInt(d.ID, 10),
				"Name", d.Name,
				"Member", member,
				"Secondary type", secondary,
				"Status", d.Status.Label(),
				"Date", str(d.Date),
				"Signature", str(d.SignatureFile),
				"Rejected reason", str(d.RejectedReason),
				"Reviewed by", reviewer,
				"Reviewed at", timestamp(d.ApprovedAt),
			)
			return nil
		},
		approve: func(ctx context.Context, api *client.Client, id int64) (string, error) {
			resp, err := api.ApproveSelfDeclaration(ctx, id)
			if err != nil {
				return "", err
			}
			return resp.Message, nil
		},
		reject: func(ctx context.Context, api *client.Client, id int64, reason string) (string, error) {
			resp, err := api.RejectSelfDeclaration(ctx, id, reason)
			if err != nil {
				return "", err
			}
			return resp.Message, nil
		},
	})
}

func newReviewCmd(factory EnvFactory, r reviewable) *cobra.Command {
	cmd := &cobra.Command{
		Use:     r.use,
		Aliases: r.aliases,
		Short:   fmt.Sprintf("Review %ss", r.noun),
	}

	cmd.AddCommand(newReviewListCmd(factory, r))
	cmd.AddCommand(newShowCmd(factory, r.noun, r.show))
	cmd.AddCommand(newDecisionCmd(factory, r, "approve"))
	cmd.AddCommand(newDecisionCmd(factory, r, "reject"))

	return cmd
}

func newReviewListCmd(factory EnvFactory, r reviewable) *cobra.Command {
	var status string
	var page int

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   fmt.Sprintf("List %ss", r.noun),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(factory, cmd, func(env *Env) error {
				q := client.ListQuery{Status: models.ReviewStatus(strings.ToUpper(status)), Page: page}
				return runList(cmd.Context(), env, q, r.list)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, APPROVED, REJECTED)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")

	return cmd
}

func runList(ctx context.Context, env *Env, q client.ListQuery, list func(context.Context, *client.Client, client.ListQuery, io.Writer) (models.PaginationMeta, error)) error {
	if err := env.Validator.Struct(q); err != nil {
		return fmt.Errorf("invalid filters: %s", joinFieldErrors(models.FieldErrors(err)))
	}

	meta, err := list(ctx, env.API, q, env.Out)
	if err != nil {
		return explain(err)
	}
	printPageFooter(env.Out, meta)
	return nil
}

func newShowCmd(factory EnvFactory, noun string, show func(context.Context, *client.Client, int64, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: fmt.Sprintf("Show one %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(factory, cmd, func(env *Env) error {
				return explain(show(cmd.Context(), env.API, id, env.Out))
			})
		},
	}
}

func newDecisionCmd(factory EnvFactory, r reviewable, action string) *cobra.Command {
	var yes bool
	var reason string
	verb := strings.ToUpper(action[:1]) + action[1:]

	cmd := &cobra.Command{
		Use:   action + " <id>",
		Short: fmt.Sprintf("%s a pending %s", verb, r.noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if len(reason) > maxReasonLength {
				return fmt.Errorf("reason must not be greater than %d characters", maxReasonLength)
			}

			return withEnv(factory, cmd, func(env *Env) error {
				if err := confirm(env, fmt.Sprintf("%s %s #%d", verb, r.noun, id), yes); err != nil {
					return err
				}

				var message string
				if action == "approve" {
					message, err = r.approve(cmd.Context(), env.API, id)
				} else {
					message, err = r.reject(cmd.Context(), env.API, id, strings.TrimSpace(reason))
				}
				if err != nil {
					return explain(err)
				}

				env.Logger.Debug().Str("resource", r.use).Int64("id", id).Str("action", action).Msg("Review decision recorded")
				fmt.Fprintf(env.Out, "✓ %s\n", message)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	if action == "reject" && r.takesReason {
		cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the member")
	}

	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
