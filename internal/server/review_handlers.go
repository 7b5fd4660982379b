package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/memberdesk/memberdesk/internal/client"
	"github.com/memberdesk/memberdesk/internal/models"
)

// review runs an approve/reject call and returns to the list with the API's message
func (s *Server) review(c *gin.Context, listPath, action string, call func(ctx context.Context, id int64) (string, error)) {
	id, ok := s.resourceID(c, listPath)
	if !ok {
		return
	}
	detailPath := fmt.Sprintf("%s/%d", listPath, id)

	message, err := call(c.Request.Context(), id)
	if err != nil {
		s.apiFailure(c, err, detailPath)
		return
	}

	var adminID int64
	if admin, ok := CurrentUser(c); ok {
		adminID = admin.ID
	}
	s.logger.Info().
		Str("resource", strings.TrimPrefix(listPath, "/")).
		Int64("id", id).
		Str("action", action).
		Int64("admin_id", adminID).
		Msg("Review decision recorded")

	s.setFlash(c, flashSuccess, message)
	c.Redirect(http.StatusFound, listPath)
}

func (s *Server) showApplication(c *gin.Context) {
	id, ok := s.resourceID(c, "/applications")
	if !ok {
		return
	}
	app, err := s.api.GetApplication(c.Request.Context(), id)
	if err != nil {
		s.apiFailure(c, err, "/applications")
		return
	}
	c.HTML(http.StatusOK, "application.tmpl", s.page(c, app.FullName, gin.H{"Item": app}))
}

func (s *Server) approveApplication(c *gin.Context) {
	s.review(c, "/applications", "approve", func(ctx context.Context, id int64) (string, error) {
		resp, err := s.api.ApproveApplication(ctx, id)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	})
}

func (s *Server) rejectApplication(c *gin.Context) {
	s.review(c, "/applications", "reject", func(ctx context.Context, id int64) (string, error) {
		resp, err := s.api.RejectApplication(ctx, id)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	})
}

func (s *Server) showMember(c *gin.Context) {
	id, ok := s.resourceID(c, "/members")
	if !ok {
		return
	}
	m, err := s.api.GetMember(c.Request.Context(), id)
	if err != nil {
		s.apiFailure(c, err, "/members")
		return
	}
	c.HTML(http.StatusOK, "member.tmpl", s.page(c, m.Name, gin.H{"Item": m}))
}

func (s *Server) showPayment(c *gin.Context) {
	id, ok := s.resourceID(c, "/payments")
	if !ok {
		return
	}
	p, err := s.api.GetPayment(c.Request.Context(), id)
	if err != nil {
		s.apiFailure(c, err, "/payments")
		return
	}
	c.HTML(http.StatusOK, "payment.tmpl", s.page(c, "Payment #"+strconv.FormatInt(p.ID, 10), gin.H{"Item": p}))
}

// paymentForm is the edit form on the payment detail page. Blank fields are left unchanged.
type paymentForm struct {
	Name           string `form:"name" validate:"max=255"`
	Address        string `form:"address" validate:"max=500"`
	MobileNumber   string `form:"mobile_number" validate:"max=32"`
	PaymentPurpose string `form:"payment_purpose" validate:"max=64"`
	PaymentAmount  string `form:"payment_amount" validate:"omitempty,numeric"`
}

func (f paymentForm) update() models.PaymentUpdate {
	var u models.PaymentUpdate
	if v := strings.TrimSpace(f.Name); v != "" {
		u.Name = &v
	}
	if v := strings.TrimSpace(f.Address); v != "" {
		u.Address = &v
	}
	if v := strings.TrimSpace(f.MobileNumber); v != "" {
		u.MobileNumber = &v
	}
	if v := strings.TrimSpace(f.PaymentPurpose); v != "" {
		purpose := models.PaymentPurpose(v)
		u.PaymentPurpose = &purpose
	}
	if amount, err := strconv.ParseFloat(strings.TrimSpace(f.PaymentAmount), 64); err == nil {
		u.PaymentAmount = &amount
	}
	return u
}

func flattenErrors(fields map[string][]string) string {
	var parts []string
	for _, msgs := range fields {
		parts = append(parts, msgs...)
	}
	return strings.Join(parts, " ")
}

func (s *Server) updatePayment(c *gin.Context) {
	id, ok := s.resourceID(c, "/payments")
	if !ok {
		return
	}
	detailPath := fmt.Sprintf("/payments/%d", id)

	var form paymentForm
	if err := c.ShouldBind(&form); err != nil {
		s.setFlash(c, flashError, "Invalid request")
		c.Redirect(http.StatusFound, detailPath)
		return
	}
	if err := s.validator.Struct(form); err != nil {
		s.setFlash(c, flashError, flattenErrors(models.FieldErrors(err)))
		c.Redirect(http.StatusFound, detailPath)
		return
	}

	update := form.update()
	if err := s.validator.Struct(update); err != nil {
		s.setFlash(c, flashError, flattenErrors(models.FieldErrors(err)))
		c.Redirect(http.StatusFound, detailPath)
		return
	}

	if _, err := s.api.UpdatePayment(c.Request.Context(), id, update); err != nil {
		if fields := client.FieldErrors(err); len(fields) > 0 {
			s.setFlash(c, flashError, client.Message(err)+" "+flattenErrors(fields))
			c.Redirect(http.StatusFound, detailPath)
			return
		}
		s.apiFailure(c, err, detailPath)
		return
	}

	s.setFlash(c, flashSuccess, "Payment updated.")
	c.Redirect(http.StatusFound, detailPath)
}

func (s *Server) approvePayment(c *gin.Context) {
	s.review(c, "/payments", "approve", func(ctx context.Context, id int64) (string, error) {
		resp, err := s.api.ApprovePayment(ctx, id)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	})
}

func (s *Server) rejectPayment(c *gin.Context) {
	s.review(c, "/payments", "reject", func(ctx context.Context, id int64) (string, error) {
		resp, err := s.api.RejectPayment(ctx, id)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	})
}

func (s *Server) showSelfDeclaration(c *gin.Context) {
	id, ok := s.resourceID(c, "/self-declarations")
	if !ok {
		return
	}
	d, err := s.api.GetSelfDeclaration(c.Request.Context(), id)
	if err != nil {
		s.apiFailure(c, err, "/self-declarations")
		return
	}
	c.HTML(http.StatusOK, "self_declaration.tmpl", s.page(c, d.Name, gin.H{"Item": d}))
}

func (s *Server) approveSelfDeclaration(c *gin.Context) {
	s.review(c, "/self-declarations", "approve", func(ctx context.Context, id int64) (string, error) {
		resp, err := s.api.ApproveSelfDeclaration(ctx, id)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	})
}

func (s *Server) rejectSelfDeclaration(c *gin.Context) {
	reason := strings.TrimSpace(c.PostForm("rejected_reason"))
	if len(reason) > 1000 {
		reason = reason[:1000]
	}
	s.review(c, "/self-declarations", "reject", func(ctx context.Context, id int64) (string, error) {
		resp, err := s.api.RejectSelfDeclaration(ctx, id, reason)
		if err != nil {
			return "", err
		}
		return resp.Message, nil
	})
}
