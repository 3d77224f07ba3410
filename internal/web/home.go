package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func Home() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeHead(w, "Planning Poker"); err != nil {
			return err
		}
		_, err := io.WriteString(w, `
    <main class="shell">
      <header class="hero">
        <span class="tag">Planning Poker</span>
        <h1>Estimate together.</h1>
        <p>Start a room, share the code, and reveal every card at once.</p>
      </header>

      <section class="panel" id="lobby">
        <div>
          <h2>Start a room</h2>
          <p>You become the host. Share the room code with your team.</p>
        </div>
        <form id="createForm" class="join-form">
          <input name="name" placeholder="Your name" autocomplete="name" maxlength="32" required/>
          <label><input type="checkbox" name="observer"/> Join as observer</label>
          <button type="submit" class="primary">Create room</button>
        </form>
        <div id="createResult" class="result"></div>

        <div>
          <h2>Join a room</h2>
          <p>Enter the six character code from your host.</p>
        </div>
        <form id="joinForm" class="join-form">
          <input name="code" placeholder="Room code" autocomplete="off" maxlength="6" required/>
          <input name="name" placeholder="Your name" autocomplete="name" maxlength="32" required/>
          <label><input type="checkbox" name="observer"/> Join as observer</label>
          <button type="submit" class="secondary">Join room</button>
        </form>
        <div id="joinResult" class="result"></div>
      </section>
`)
		if err != nil {
			return err
		}
		return writeBoard(w)
	})
}
