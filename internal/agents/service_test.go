package agents

import (
	"context"
	"testing"

	"voice-dashboard/internal/apperrors"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo *MemoryRepo
	svc  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: NewMemoryRepo()}
	f.svc = NewService(f.repo, nil)
	f.repo.AddNumber(PhoneNumber{ID: "n1", Number: "+15550000001", Status: NumberAvailable, OrganizationID: "o1"})
	f.repo.AddNumber(PhoneNumber{ID: "n2", Number: "+15550000002", Status: NumberAvailable, OrganizationID: "o1"})
	f.repo.AddNumber(PhoneNumber{ID: "pool", Number: "+15550000009", Status: NumberAvailable})
	return f
}

func (f *fixture) voiceAgent(t *testing.T, name string) Agent {
	t.Helper()
	a, err := f.svc.Create(context.Background(), "o1", "u1", CreateInput{Name: name, Type: TypeVoice})
	require.NoError(t, err)
	return a
}

// consistent checks that every linked number points back at exactly one agent whose config points at it.
func consistent(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	agents, err := f.svc.List(ctx, "o1", ListFilter{})
	require.NoError(t, err)
	nums, err := f.svc.ListNumbers(ctx, "o1")
	require.NoError(t, err)

	for _, n := range nums {
		refs := 0
		for _, a := range agents {
			if a.VoiceConfig != nil && a.VoiceConfig.PhoneNumberID == n.ID {
				refs++
				assert.Equal(t, a.ID, n.AgentID, "number %s", n.ID)
			}
		}
		if n.AgentID != "" {
			assert.Equal(t, 1, refs, "number %s", n.ID)
			assert.Equal(t, NumberAssigned, n.Status)
		} else {
			assert.Zero(t, refs, "number %s", n.ID)
		}
	}
}

func TestConnectPhoneNumber_BidirectionalLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.voiceAgent(t, "A")
	b := f.voiceAgent(t, "B")

	got, err := f.svc.ConnectPhoneNumber(ctx, "o1", "u1", a.ID, "n1")
	require.NoError(t, err)
	require.NotNil(t, got.PhoneNumber)
	assert.Equal(t, "n1", got.PhoneNumber.ID)
	consistent(t, f)

	_, err = f.svc.ConnectPhoneNumber(ctx, "o1", "u1", b.ID, "n1")
	require.NoError(t, err)
	a, _ = f.svc.Get(ctx, "o1", a.ID)
	assert.Nil(t, a.PhoneNumber)
	consistent(t, f)

	got, err = f.svc.ConnectPhoneNumber(ctx, "o1", "u1", b.ID, "n2")
	require.NoError(t, err)
	assert.Equal(t, "n2", got.PhoneNumber.ID)
	n1, _ := f.repo.GetNumber(ctx, "n1")
	assert.Empty(t, n1.AgentID)
	assert.Equal(t, NumberAvailable, n1.Status)
	consistent(t, f)

	got, err = f.svc.DisconnectPhoneNumber(ctx, "o1", b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.PhoneNumber)
	consistent(t, f)
}

func TestConnectPhoneNumber_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.voiceAgent(t, "A")
	chat, _ := f.svc.Create(ctx, "o1", "u1", CreateInput{Name: "C", Type: TypeChat})

	_, err := f.svc.ConnectPhoneNumber(ctx, "o1", "u1", chat.ID, "n1")
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.svc.ConnectPhoneNumber(ctx, "o1", "u1", a.ID, "pool")
	assert.True(t, apperrors.IsNotFound(err), "pool numbers must be claimed first")

	f.repo.AddNumber(PhoneNumber{ID: "r", Number: "+15550000003", Status: NumberReserved, OrganizationID: "o1"})
	_, err = f.svc.ConnectPhoneNumber(ctx, "o1", "u1", a.ID, "r")
	assert.True(t, apperrors.IsConflict(err))
}

func TestClaimAndRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.voiceAgent(t, "A")

	pool, _ := f.svc.ListPool(ctx)
	require.Len(t, pool, 1)

	n, err := f.svc.Claim(ctx, "o1", "pool")
	require.NoError(t, err)
	assert.Equal(t, "o1", n.OrganizationID)
	_, err = f.svc.Claim(ctx, "o2", "pool")
	assert.True(t, apperrors.IsConflict(err))

	_, err = f.svc.ConnectPhoneNumber(ctx, "o1", "u1", a.ID, "pool")
	require.NoError(t, err)

	require.NoError(t, f.svc.Release(ctx, "o1", "u1", "pool"))
	a, _ = f.svc.Get(ctx, "o1", a.ID)
	assert.Nil(t, a.PhoneNumber)
	assert.Empty(t, a.VoiceConfig.PhoneNumberID)
	pool, _ = f.svc.ListPool(ctx)
	assert.Len(t, pool, 1)
	consistent(t, f)
}

func TestUpsertVoiceConfig_KeepsPhoneLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.voiceAgent(t, "A")
	_, err := f.svc.ConnectPhoneNumber(ctx, "o1", "u1", a.ID, "n1")
	require.NoError(t, err)

	got, err := f.svc.UpsertVoiceConfig(ctx, "o1", a.ID, VoiceConfigInput{VoiceID: "v-1", FirstMessage: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, "v-1", got.VoiceConfig.VoiceID)
	assert.Equal(t, "n1", got.VoiceConfig.PhoneNumberID)
}

func TestCreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, "o1", "u1", CreateInput{Name: "x", Type: "sms"})
	assert.True(t, apperrors.IsValidation(err))

	a := f.voiceAgent(t, "A")
	assert.Equal(t, StatusDraft, a.Status)
	tone := "friendly"
	a, err = f.svc.Update(ctx, "o1", a.ID, UpdateInput{Tone: &tone})
	require.NoError(t, err)
	assert.Equal(t, "friendly", a.Tone)

	a, err = f.svc.SetStatus(ctx, "o1", a.ID, StatusActive)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, a.Status)

	_, err = f.svc.Get(ctx, "o2", a.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPGRepo_LinkTouchesBothAgents(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE agents SET updated_at = now\(\) WHERE organization_id = \$1 AND id = \$2`).
		WithArgs("o1", "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT 1 FROM phone_numbers`).
		WithArgs("o1", "n1").
		WillReturnRows(pgxmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectExec(`UPDATE agents SET updated_at = now\(\)\s+WHERE id IN`).
		WithArgs("n1", "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE voice_agent_configs SET phone_number_id = NULL`).
		WithArgs("n1", "a1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE phone_numbers SET agent_id = NULL`).
		WithArgs("a1", "n1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`INSERT INTO voice_agent_configs`).
		WithArgs("a1", "n1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE phone_numbers SET agent_id = \$1, status = 'assigned'`).
		WithArgs("a1", "n1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, NewPGRepo(mock).Link(context.Background(), "o1", "a1", "n1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepo_VoiceConfigOnForeignAgentIsNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE agents SET updated_at = now\(\)`).
		WithArgs("o1", "theirs").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err = NewPGRepo(mock).UpsertVoiceConfig(context.Background(), "o1", VoiceConfig{AgentID: "theirs", VoiceID: "v"})
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
