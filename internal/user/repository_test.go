package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "phone constraint",
			err:  &pq.Error{Code: "23505", Constraint: "users_phone_key"},
			want: ErrDuplicatePhone,
		},
		{
			name: "email constraint",
			err:  &pq.Error{Code: "23505", Constraint: "users_email_key"},
			want: ErrDuplicateEmail,
		},
		{
			name: "wrapped pq error",
			err:  fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "users_phone_key"}),
			want: ErrDuplicatePhone,
		},
		{
			name: "other pq error code",
			err:  &pq.Error{Code: "23503", Constraint: "bookings_user_id_fkey"},
			want: nil,
		},
		{
			name: "not a pq error",
			err:  errors.New("connection refused"),
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapUniqueViolation(tc.err)
			if tc.want == nil {
				require.NoError(t, got)
				return
			}
			require.ErrorIs(t, got, tc.want)
		})
	}
}

func TestUserJSON_HidesPasswordHash(t *testing.T) {
	t.Parallel()

	u := &User{Email: "asha@example.com", PasswordHash: "$argon2id$hash"}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	require.NotContains(t, string(data), "argon2id")
	require.Contains(t, string(data), "asha@example.com")
}
