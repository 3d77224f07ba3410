package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// JoinPage is the state of a room looked up from a shared link.
type JoinPage struct {
	Code    string
	Status  string
	Message string
}

func (p JoinPage) Joinable() bool {
	return p.Status == "active"
}

// JoinView renders the join form for a shared link. A link to a room that is
// gone or expired leaves the code field empty and drops the room parameter
// from the address bar, so reloading does not land on the same dead room.
func JoinView(page JoinPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeHead(w, "Join room "+page.Code); err != nil {
			return err
		}
		code := templ.EscapeString(page.Code)
		heading := "Join room " + code
		value := code
		banner := ""
		if page.Message != "" {
			banner = `<p class="notice notice-` + templ.EscapeString(page.Status) + `">` + templ.EscapeString(page.Message) + `</p>`
		}
		if !page.Joinable() {
			heading = "Join a room"
			value = ""
			banner += `<script>history.replaceState(null, "", "/join");</script>`
		}
		_, err := io.WriteString(w, `
    <main class="shell">
      <header class="hero">
        <span class="tag">Planning Poker</span>
        <h1>`+heading+`</h1>
      </header>

      <section class="panel" id="lobby">
        `+banner+`
        <form id="joinForm" class="join-form">
          <input name="code" value="`+value+`" autocomplete="off" maxlength="6" required/>
          <input name="name" placeholder="Your name" autocomplete="name" maxlength="32" required/>
          <label><input type="checkbox" name="observer"/> Join as observer</label>
          <button type="submit" class="secondary">Join room</button>
        </form>
        <div id="joinResult" class="result"></div>
        <p><a href="/">Start a new room instead</a></p>
      </section>
`)
		if err != nil {
			return err
		}
		return writeBoard(w)
	})
}
