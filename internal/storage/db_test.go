package storage

import (
	"testing"
	"time"

	"github.com/CrypticFlow/SmartExpense/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DBTestSuite struct {
	suite.Suite
	db *DB
}

func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
}

func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestCreateAndGetTeam() {
	team, err := suite.db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), team.ID)
	assert.Equal(suite.T(), "Engineering", team.Name)
	assert.Zero(suite.T(), team.CreatedBy)

	got, err := suite.db.GetTeam(team.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), team.ID, got.ID)
}

func (suite *DBTestSuite) TestSetTeamCreator() {
	team, err := suite.db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)
	user, err := suite.db.CreateUser("Alice", "alice@example.com", "hash", models.RoleAdmin, team.ID)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.SetTeamCreator(team.ID, user.ID))

	got, err := suite.db.GetTeam(team.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, got.CreatedBy)
}

func (suite *DBTestSuite) TestCreateAndGetUser() {
	team, err := suite.db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)

	user, err := suite.db.CreateUser("Alice", "alice@example.com", "hash", models.RoleAdmin, team.ID)
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), user.ID)
	assert.Equal(suite.T(), models.RoleAdmin, user.Role)
	assert.Equal(suite.T(), team.ID, user.TeamID)

	byEmail, err := suite.db.GetUserByEmail("alice@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, byEmail.ID)

	byID, err := suite.db.GetUserByID(user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Alice", byID.Name)
}

func (suite *DBTestSuite) TestDuplicateEmailFails() {
	team, err := suite.db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateUser("Alice", "alice@example.com", "hash", models.RoleAdmin, team.ID)
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateUser("Other", "alice@example.com", "hash", models.RoleEmployee, team.ID)
	assert.Error(suite.T(), err)
}

func (suite *DBTestSuite) TestGetTeamMembersOrderedByName() {
	team, err := suite.db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)
	other, err := suite.db.CreateTeam("Sales")
	require.NoError(suite.T(), err)

	_, err = suite.db.CreateUser("Carol", "carol@example.com", "hash", models.RoleEmployee, team.ID)
	require.NoError(suite.T(), err)
	_, err = suite.db.CreateUser("Alice", "alice@example.com", "hash", models.RoleAdmin, team.ID)
	require.NoError(suite.T(), err)
	_, err = suite.db.CreateUser("Bob", "bob@example.com", "hash", models.RoleManager, other.ID)
	require.NoError(suite.T(), err)

	members, err := suite.db.GetTeamMembers(team.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), members, 2)
	assert.Equal(suite.T(), "Alice", members[0].Name)
	assert.Equal(suite.T(), "Carol", members[1].Name)
}

func (suite *DBTestSuite) TestUpdateUserTeam() {
	team, err := suite.db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)
	other, err := suite.db.CreateTeam("Sales")
	require.NoError(suite.T(), err)

	user, err := suite.db.CreateUser("Alice", "alice@example.com", "hash", models.RoleEmployee, team.ID)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.UpdateUserTeam(user.ID, other.ID, models.RoleManager))

	got, err := suite.db.GetUserByID(user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), other.ID, got.TeamID)
	assert.Equal(suite.T(), models.RoleManager, got.Role)
}

func (suite *DBTestSuite) TestUserCount() {
	count, err := suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count)

	team, err := suite.db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)
	_, err = suite.db.CreateUser("Alice", "alice@example.com", "hash", models.RoleAdmin, team.ID)
	require.NoError(suite.T(), err)

	count, err = suite.db.UserCount()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

type SessionTestSuite struct {
	suite.Suite
	db   *DB
	user *models.User
}

func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	team, err := db.CreateTeam("Engineering")
	require.NoError(suite.T(), err)
	suite.user, err = db.CreateUser("Alice", "alice@example.com", "hash", models.RoleAdmin, team.ID)
	require.NoError(suite.T(), err)
}

func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) TestCreateAndValidateSession() {
	err := suite.db.CreateSession("token123", suite.user.ID, time.Now().Add(time.Hour))
	require.NoError(suite.T(), err)

	user, err := suite.db.ValidateSession("token123")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, user.ID)
}

func (suite *SessionTestSuite) TestValidateSessionWithInfo() {
	expiresAt := time.Now().Add(time.Hour)
	err := suite.db.CreateSession("token123", suite.user.ID, expiresAt)
	require.NoError(suite.T(), err)

	info, err := suite.db.ValidateSessionWithInfo("token123")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.user.ID, info.User.ID)
	assert.WithinDuration(suite.T(), expiresAt, info.ExpiresAt, time.Second)
	assert.WithinDuration(suite.T(), time.Now(), info.LastActivity, time.Minute)
}

func (suite *SessionTestSuite) TestExpiredSessionRejected() {
	err := suite.db.CreateSession("token123", suite.user.ID, time.Now().Add(-time.Hour))
	require.NoError(suite.T(), err)

	_, err = suite.db.ValidateSession("token123")
	assert.Error(suite.T(), err)
}

func (suite *SessionTestSuite) TestUnknownTokenRejected() {
	_, err := suite.db.ValidateSession("nope")
	assert.Error(suite.T(), err)
}

func (suite *SessionTestSuite) TestRenewSession() {
	err := suite.db.CreateSession("token123", suite.user.ID, time.Now().Add(time.Hour))
	require.NoError(suite.T(), err)

	newExpiry := time.Now().Add(48 * time.Hour)
	require.NoError(suite.T(), suite.db.RenewSession("token123", newExpiry))

	info, err := suite.db.ValidateSessionWithInfo("token123")
	require.NoError(suite.T(), err)
	assert.WithinDuration(suite.T(), newExpiry, info.ExpiresAt, time.Second)
}

func (suite *SessionTestSuite) TestDeleteSession() {
	err := suite.db.CreateSession("token123", suite.user.ID, time.Now().Add(time.Hour))
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.DeleteSession("token123"))

	_, err = suite.db.ValidateSession("token123")
	assert.Error(suite.T(), err)
}

func (suite *SessionTestSuite) TestCleanExpiredSessions() {
	err := suite.db.CreateSession("live", suite.user.ID, time.Now().Add(time.Hour))
	require.NoError(suite.T(), err)
	err = suite.db.CreateSession("stale", suite.user.ID, time.Now().Add(-time.Hour))
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.CleanExpiredSessions())

	_, err = suite.db.ValidateSession("live")
	assert.NoError(suite.T(), err)

	var count int
	err = suite.db.conn.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
