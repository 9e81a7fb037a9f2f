package ladder

import "github.com/Dosada05/pyramid-ladder/models"

const missingPlayer = "?"

// DisplayName builds a team's name from its two players. Nicknames win over
// surnames: both nicknamed gives "nick1 / nick2", one nicknamed gives
// "nick / otherPaternalSurname", none gives "paternal1 / paternal2".
// History rows and emails depend on this exact order.
func DisplayName(p1, p2 *models.Player) string {
	switch n1, n2 := p1.HasNickname(), p2.HasNickname(); {
	case n1 && n2:
		return *p1.Nickname + " / " + *p2.Nickname
	case n1:
		return *p1.Nickname + " / " + surname(p2)
	case n2:
		return *p2.Nickname + " / " + surname(p1)
	default:
		return surname(p1) + " / " + surname(p2)
	}
}

// TeamName fills DisplayName from the team's loaded players.
func TeamName(t *models.Team) string {
	if t == nil {
		return ""
	}
	return DisplayName(t.Player1, t.Player2)
}

func surname(p *models.Player) string {
	if p == nil || p.PaternalSurname == "" {
		return missingPlayer
	}
	return p.PaternalSurname
}
