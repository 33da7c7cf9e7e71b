package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// static wraps a fixed HTML document as a templ component.
func static(html string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html)
		return err
	})
}

// Join is the student-facing page: enter a name, open the heartbeat
// connection, answer every probe.
func Join() templ.Component { return static(joinHTML) }

// Dashboard is the live monitor page, polling /status every second.
func Dashboard() templ.Component { return static(dashboardHTML) }

// NoData is rendered when a report is requested before any transition
// has been logged.
func NoData() templ.Component { return static(noDataHTML) }

const joinHTML = `<!doctype html>
<html>
<head>
	<title>Exam Check-In</title>
	<style>
		body { font-family: Arial; text-align:center; margin-top:50px; }
		.status { font-weight:bold; font-size:1.2em; margin-top:20px; }
		.online { color: green; }
		.offline { color: red; }
	</style>
</head>
<body>
	<h1>Exam Check-In</h1>
	<input type="text" id="name" placeholder="Enter your name">
	<button onclick="startExam()">Start Exam</button>

	<div class="status" id="status">Not connected</div>

	<script>
		let socket;
		function setStatus(text, cls) {
			const el = document.getElementById("status");
			el.innerHTML = text;
			el.className = "status " + cls;
		}
		function startExam() {
			const name = document.getElementById("name").value.trim();
			if (!name) { alert("Enter your name!"); return; }

			const proto = location.protocol === "https:" ? "wss" : "ws";
			socket = new WebSocket(proto + "://" + location.host + "/ws?name=" + encodeURIComponent(name));

			socket.onopen = () => setStatus("ONLINE", "online");
			socket.onmessage = (ev) => { if (ev.data === "PING") socket.send("PONG"); };
			socket.onclose = () => setStatus("OFFLINE", "offline");
		}

		// Extra ack every second so one dropped frame never looks like an absence.
		setInterval(() => {
			if (socket && socket.readyState === WebSocket.OPEN) socket.send("PONG");
		}, 1000);
	</script>
</body>
</html>
`

const dashboardHTML = `<!doctype html>
<html>
<head>
	<title>Exam Dashboard</title>
	<style>
		body { font-family: Arial; margin: 40px; }
		table { border-collapse: collapse; width: 60%; margin: auto; }
		th, td { border: 1px solid #ccc; padding: 10px; text-align: center; }
		th { background-color: #f0f0f0; }
		.online { color: green; font-weight: bold; }
		.offline { color: red; font-weight: bold; }
	</style>
</head>
<body>
	<h1 style="text-align:center;">Student Live Monitor</h1>
	<table>
		<thead>
			<tr><th>Name</th><th>Last PONG</th><th>Status</th></tr>
		</thead>
		<tbody id="students"></tbody>
	</table>

	<script>
		async function update() {
			const res = await fetch('/status');
			const data = await res.json();
			data.students.sort((a, b) => b.online - a.online);

			let html = "";
			for (const s of data.students) {
				html += '<tr>' +
					'<td>' + s.name + '</td>' +
					'<td>' + s.last_pong + '</td>' +
					'<td class="' + (s.online ? 'online' : 'offline') + '">' +
					(s.online ? 'ONLINE' : 'OFFLINE') + '</td>' +
					'</tr>';
			}
			document.getElementById("students").innerHTML = html;
		}
		setInterval(update, 1000);
		update();
	</script>
</body>
</html>
`

const noDataHTML = `<!doctype html>
<html>
<head><title>Exam Report</title></head>
<body style="font-family: Arial; margin: 40px;">
	<h1>Student Online/Offline Report</h1>
	<p>No log data available.</p>
</body>
</html>
`
