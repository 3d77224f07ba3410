package web

import (
	"io"

	"github.com/a-h/templ"
)

func writeHead(w io.Writer, title string) error {
	_, err := io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`+templ.EscapeString(title)+`</title>
    <style>
      body { font-family: system-ui, sans-serif; margin: 0; background: #f5f6f8; color: #1d2330; }
      .shell { max-width: 860px; margin: 0 auto; padding: 24px; }
      .panel { background: #fff; border-radius: 12px; padding: 20px; margin-bottom: 16px; }
      .join-form { display: flex; flex-wrap: wrap; gap: 8px; margin-bottom: 12px; }
      .cards button { min-width: 48px; min-height: 64px; margin: 4px; font-size: 1.2rem; }
      .cards button.selected { background: #2f6fed; color: #fff; }
      .participants li.voted::after { content: " \2713"; }
      .notice { padding: 8px 12px; border-radius: 8px; background: #fff3cd; }
      .hidden { display: none; }
    </style>
  </head>
  <body>
`)
	return err
}

// writeBoard renders the live room panel and the client that drives it.
// The client keeps its room code and participant id in sessionStorage and
// renders every view pushed over the room websocket.
func writeBoard(w io.Writer) error {
	_, err := io.WriteString(w, `
      <section class="panel hidden" id="board">
        <header>
          <h2 id="story"></h2>
          <p>Room <strong id="roomCode"></strong> &middot; <a id="shareLink" href="#">share link</a> &middot; <span id="progress"></span></p>
        </header>
        <div id="notice" class="notice hidden"></div>
        <div class="cards" id="cards"></div>
        <div>
          <button id="reveal" class="primary">Reveal</button>
          <button id="reset" class="secondary">New round</button>
          <form id="storyForm" class="join-form">
            <input name="story" placeholder="Story" maxlength="280"/>
            <button type="submit">Set story</button>
          </form>
        </div>
        <ul class="participants" id="participants"></ul>
        <div id="stats"></div>
        <button id="leave">Leave room</button>
      </section>
    </main>

    <script>
      const $ = (id) => document.getElementById(id);
      let current = JSON.parse(sessionStorage.getItem("poker") || "null");
      let socket = null;
      let deck = [];

      async function api(path, body) {
        const res = await fetch(path, {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify(body || {})
        });
        const data = await res.json().catch(() => ({}));
        if (!res.ok) {
          throw new Error(data.error || "Request failed.");
        }
        return data;
      }

      function enter(code, participantId) {
        current = { code, participantId };
        sessionStorage.setItem("poker", JSON.stringify(current));
        connect();
      }

      function leave() {
        sessionStorage.removeItem("poker");
        current = null;
        if (socket) {
          socket.close();
        }
        $("board").classList.add("hidden");
        $("lobby").classList.remove("hidden");
      }

      function connect() {
        $("lobby").classList.add("hidden");
        $("board").classList.remove("hidden");
        const proto = location.protocol === "https:" ? "wss://" : "ws://";
        socket = new WebSocket(proto + location.host + "/ws/rooms/" + encodeURIComponent(current.code) +
          "?participant_id=" + encodeURIComponent(current.participantId));
        socket.onmessage = (event) => render(JSON.parse(event.data));
        socket.onclose = () => {
          if (current) {
            $("notice").textContent = "Connection lost. Reload to rejoin.";
            $("notice").classList.remove("hidden");
          }
        };
      }

      function render(view) {
        if (view.error) {
          leave();
          $("joinResult").textContent = view.error;
          return;
        }
        if (view.status === "gone" || view.status === "expired") {
          $("notice").textContent = view.status === "expired"
            ? "This room has expired. Start a new one."
            : "This room no longer exists.";
          $("notice").classList.remove("hidden");
          sessionStorage.removeItem("poker");
          current = null;
          return;
        }
        $("notice").classList.add("hidden");
        $("story").textContent = view.story;
        $("roomCode").textContent = view.room_code;
        $("shareLink").href = "/join?room=" + encodeURIComponent(view.room_code);
        $("progress").textContent = view.voted_count + " of " + view.total_voters + " voted" +
          (view.observer_count ? ", " + view.observer_count + " watching" : "");

        const self = view.self;
        const cards = $("cards");
        cards.innerHTML = "";
        if (self && !self.is_observer) {
          deck.forEach((card) => {
            const btn = document.createElement("button");
            btn.textContent = card;
            btn.disabled = view.revealed;
            if (self.vote === card) {
              btn.classList.add("selected");
            }
            btn.onclick = () => castVote(self.vote === card ? "" : card);
            cards.appendChild(btn);
          });
        }

        const list = $("participants");
        list.innerHTML = "";
        view.participants.forEach((p) => {
          const li = document.createElement("li");
          let label = p.name + (p.is_host ? " (host)" : "") + (p.is_observer ? " (observer)" : "");
          if (view.revealed && p.vote) {
            label += ": " + p.vote;
          }
          li.textContent = label;
          if (p.has_voted) {
            li.classList.add("voted");
          }
          list.appendChild(li);
        });

        const stats = view.stats;
        $("stats").textContent = stats
          ? "Average " + stats.mean + " · min " + stats.min + " · max " + stats.max + " · " + stats.count + " numeric votes"
          : "";
      }

      async function castVote(value) {
        try {
          await api("/api/rooms/" + current.code + "/votes", { participant_id: current.participantId, value });
        } catch (err) {
          $("notice").textContent = err.message;
          $("notice").classList.remove("hidden");
        }
      }

      function wire(form, resultId, handler) {
        if (!form) {
          return;
        }
        form.addEventListener("submit", async (event) => {
          event.preventDefault();
          $(resultId).textContent = "Working...";
          try {
            await handler(form);
            $(resultId).textContent = "";
          } catch (err) {
            $(resultId).textContent = err.message;
          }
        });
      }

      wire($("createForm"), "createResult", async (form) => {
        const data = await api("/api/rooms", {
          name: form.elements.name.value,
          observer: form.elements.observer.checked
        });
        enter(data.room_code, data.participant_id);
      });

      wire($("joinForm"), "joinResult", async (form) => {
        const code = form.elements.code.value.trim().toUpperCase();
        const data = await api("/api/rooms/" + encodeURIComponent(code) + "/join", {
          name: form.elements.name.value,
          observer: form.elements.observer.checked
        });
        enter(data.room_code, data.participant_id);
      });

      $("storyForm").addEventListener("submit", async (event) => {
        event.preventDefault();
        try {
          await api("/api/rooms/" + current.code + "/story", { story: event.target.elements.story.value });
          event.target.reset();
        } catch (err) {
          $("notice").textContent = err.message;
          $("notice").classList.remove("hidden");
        }
      });
      $("reveal").onclick = () => api("/api/rooms/" + current.code + "/reveal").catch(() => {});
      $("reset").onclick = () => api("/api/rooms/" + current.code + "/reset").catch(() => {});
      $("leave").onclick = async () => {
        const { code, participantId } = current;
        leave();
        await api("/api/rooms/" + code + "/leave", { participant_id: participantId }).catch(() => {});
      };

      fetch("/api/cards").then((res) => res.json()).then((data) => {
        deck = data.cards || [];
        if (current) {
          connect();
        }
      });
    </script>
  </body>
</html>
`)
	return err
}
