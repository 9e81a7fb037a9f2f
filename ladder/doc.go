// Package ladder holds the pure rules of the pyramid ladder: which slots a team may
// challenge, how a finished match moves teams, the match status machine, the weekly
// activity window used by the inactivity sweep and the display-name convention.
//
// Nothing here touches the database; services load a snapshot and ask ladder.
package ladder
