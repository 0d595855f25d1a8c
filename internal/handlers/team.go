package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/apperr"
	"github.com/CrypticFlow/SmartExpense/internal/auth"
	"github.com/CrypticFlow/SmartExpense/internal/models"

	"github.com/google/uuid"
)

// invitationTTL is how long an invitation link stays valid.
const invitationTTL = 7 * 24 * time.Hour

// TeamViewModel is the data passed to the team view template.
type TeamViewModel struct {
	Team      *models.Team
	Members   []models.User
	CanManage bool
	Notice    string
	Error     string
}

// TeamPage renders the team members page.
func (h *Handlers) TeamPage(w http.ResponseWriter, r *http.Request) {
	h.renderTeam(w, r, "", "")
}

func (h *Handlers) renderTeam(w http.ResponseWriter, r *http.Request, notice, errMsg string) {
	user := GetUserFromContext(r)

	team, err := h.db.GetTeam(user.TeamID)
	if err != nil {
		log.Printf("GetTeam error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	members, err := h.db.GetTeamMembers(user.TeamID)
	if err != nil {
		log.Printf("GetTeamMembers error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "team.html", TeamViewModel{
		Team:      team,
		Members:   members,
		CanManage: user.Role.CanManageTeam(),
		Notice:    notice,
		Error:     errMsg,
	})
}

// InviteMember creates an invitation for a new team member. The invitation
// record with its accept-link token is the system of record; delivery is
// out of scope and logged instead.
func (h *Handlers) InviteMember(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	if !user.Role.CanManageTeam() {
		h.handleError(w, apperr.Unauthorized("only admins and managers can invite members"))
		return
	}

	if err := r.ParseForm(); err != nil {
		h.handleError(w, apperr.Invalid("invalid form submission"))
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" || !strings.Contains(email, "@") {
		h.renderTeam(w, r, "", "Please enter a valid email address")
		return
	}

	role := models.Role(r.FormValue("role"))
	if role == "" {
		role = models.RoleEmployee
	}
	if !role.Valid() {
		h.handleError(w, apperr.Invalid("unknown role %q", role))
		return
	}

	inv, err := h.db.CreateInvitation(&models.Invitation{
		TeamID:    user.TeamID,
		Email:     email,
		Role:      role,
		Token:     uuid.NewString(),
		InvitedBy: user.ID,
		ExpiresAt: time.Now().Add(invitationTTL),
	})
	if err != nil {
		log.Printf("CreateInvitation error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("Invitation for %s: /invite/%s", inv.Email, inv.Token)
	h.renderTeam(w, r, "Invitation sent to "+email+"!", "")
}

// InviteViewModel is the data passed to the invitation accept template.
type InviteViewModel struct {
	Token    string
	TeamName string
	Email    string
	Role     models.Role
	Error    string
}

// InviteAcceptForm renders the page where an invitee joins the team.
func (h *Handlers) InviteAcceptForm(w http.ResponseWriter, r *http.Request) {
	inv, team, err := h.loadInvitation(r.PathValue("token"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.render(w, r, "invite.html", InviteViewModel{
		Token:    inv.Token,
		TeamName: team.Name,
		Email:    inv.Email,
		Role:     inv.Role,
	})
}

// InviteAccept creates or moves the invitee's account onto the team and
// logs them in.
func (h *Handlers) InviteAccept(w http.ResponseWriter, r *http.Request) {
	inv, team, err := h.loadInvitation(r.PathValue("token"))
	if err != nil {
		h.handleError(w, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.handleError(w, apperr.Invalid("invalid form submission"))
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	password := r.FormValue("password")

	renderErr := func(msg string) {
		h.render(w, r, "invite.html", InviteViewModel{
			Token:    inv.Token,
			TeamName: team.Name,
			Email:    inv.Email,
			Role:     inv.Role,
			Error:    msg,
		})
	}

	existing, err := h.db.GetUserByEmail(inv.Email)
	switch {
	case err == nil:
		if err := h.db.UpdateUserTeam(existing.ID, inv.TeamID, inv.Role); err != nil {
			log.Printf("UpdateUserTeam error: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	case errors.Is(err, sql.ErrNoRows):
		if name == "" {
			renderErr("Name is required")
			return
		}
		if strings.TrimSpace(password) == "" {
			renderErr("Password is required")
			return
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Printf("HashPassword error: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		existing, err = h.db.CreateUser(name, inv.Email, hash, inv.Role, inv.TeamID)
		if err != nil {
			log.Printf("CreateUser error: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	default:
		log.Printf("GetUserByEmail error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.db.SetInvitationStatus(inv.ID, models.InviteAccepted); err != nil {
		log.Printf("SetInvitationStatus error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.startSession(w, existing.ID); err != nil {
		log.Printf("Failed to start session: %v", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	http.Redirect(w, r, "/expenses", http.StatusFound)
}

func (h *Handlers) loadInvitation(token string) (*models.Invitation, *models.Team, error) {
	if err := h.db.ExpireInvitations(time.Now()); err != nil {
		return nil, nil, err
	}

	inv, err := h.db.GetInvitationByToken(token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.NotFound("invitation")
	}
	if err != nil {
		return nil, nil, err
	}
	if inv.Status != models.InvitePending {
		return nil, nil, apperr.Invalid("invitation is no longer valid")
	}

	team, err := h.db.GetTeam(inv.TeamID)
	if err != nil {
		return nil, nil, err
	}
	return inv, team, nil
}
