package storage

import (
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/models"
)

const invitationColumns = "id, team_id, email, role, token, status, invited_by, expires_at, created_at"

// CreateInvitation inserts a pending team invitation.
func (db *DB) CreateInvitation(inv *models.Invitation) (*models.Invitation, error) {
	result, err := db.conn.Exec(`
		INSERT INTO invitations (team_id, email, role, token, status, invited_by, expires_at)
		VALUES (?, ?, ?, ?, 'pending', ?, ?)`,
		inv.TeamID, inv.Email, inv.Role, inv.Token, inv.InvitedBy, inv.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(
		"SELECT "+invitationColumns+" FROM invitations WHERE id = ?", id,
	)
	var out models.Invitation
	if err := row.Scan(&out.ID, &out.TeamID, &out.Email, &out.Role, &out.Token,
		&out.Status, &out.InvitedBy, &out.ExpiresAt, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetInvitationByToken retrieves an invitation by its token.
func (db *DB) GetInvitationByToken(token string) (*models.Invitation, error) {
	row := db.conn.QueryRow(
		"SELECT "+invitationColumns+" FROM invitations WHERE token = ?", token,
	)
	var inv models.Invitation
	if err := row.Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.Role, &inv.Token,
		&inv.Status, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

// SetInvitationStatus updates the lifecycle state of an invitation.
func (db *DB) SetInvitationStatus(id int64, status models.InvitationStatus) error {
	_, err := db.conn.Exec("UPDATE invitations SET status = ? WHERE id = ?", status, id)
	return err
}

// ExpireInvitations marks pending invitations past their expiry as expired.
func (db *DB) ExpireInvitations(now time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE invitations SET status = 'expired' WHERE status = 'pending' AND expires_at <= ?",
		now,
	)
	return err
}
