package ladder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dosada05/pyramid-ladder/models"
)

func nick(n string) *string { return &n }

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		p1   *models.Player
		p2   *models.Player
		want string
	}{
		{
			name: "both nicknamed",
			p1:   &models.Player{PaternalSurname: "Lee", Nickname: nick("Ace")},
			p2:   &models.Player{PaternalSurname: "Kim", Nickname: nick("Ball")},
			want: "Ace / Ball",
		},
		{
			name: "first nicknamed",
			p1:   &models.Player{Nickname: nick("Ace")},
			p2:   &models.Player{PaternalSurname: "Smith"},
			want: "Ace / Smith",
		},
		{
			name: "second nicknamed",
			p1:   &models.Player{PaternalSurname: "Smith", MaternalSurname: "Jones"},
			p2:   &models.Player{PaternalSurname: "Lee", Nickname: nick("Ball")},
			want: "Ball / Smith",
		},
		{
			name: "no nicknames",
			p1:   &models.Player{PaternalSurname: "Lee"},
			p2:   &models.Player{PaternalSurname: "Kim"},
			want: "Lee / Kim",
		},
		{
			name: "empty nickname counts as none",
			p1:   &models.Player{PaternalSurname: "Lee", Nickname: nick("")},
			p2:   &models.Player{PaternalSurname: "Kim"},
			want: "Lee / Kim",
		},
		{
			name: "missing second player",
			p1:   &models.Player{PaternalSurname: "Lee"},
			p2:   nil,
			want: "Lee / ?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.p1, tt.p2))
		})
	}
}

func TestTeamName(t *testing.T) {
	team := &models.Team{
		Player1: &models.Player{PaternalSurname: "Lee"},
		Player2: &models.Player{PaternalSurname: "Kim", Nickname: nick("Kimchi")},
	}
	assert.Equal(t, "Kimchi / Lee", TeamName(team))
	assert.Equal(t, "", TeamName(nil))
}
