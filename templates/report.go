package templates

import (
	"fmt"
	"html"
	"strings"

	"github.com/a-h/templ"

	"examwatch/report"
)

const reportHead = `<!doctype html>
<html>
<head>
	<title>Exam Report</title>
	<style>
		body { font-family: Arial; margin: 40px; }
		h2 { text-align: center; }
		.student { margin-bottom: 50px; }
		.timeline { display: flex; height: 30px; border: 1px solid #ccc; width: 80%; margin: auto; }
		.segment { height: 100%; }
		.online { background-color: green; }
		.offline { background-color: red; }
		table { border-collapse: collapse; width: 60%; margin: 10px auto; }
		th, td { border: 1px solid #ccc; padding: 5px; text-align: center; }
		th { background-color: #f0f0f0; }
	</style>
</head>
<body>
	<h1>Student Online/Offline Report</h1>
`

// ReportPage renders per-student timelines and offline tables. Segment
// widths are flex ratios of the exam duration, so the bars line up the
// same way for every student.
func ReportPage(rep report.Report) templ.Component {
	var b strings.Builder
	b.WriteString(reportHead)

	for _, s := range rep.Students {
		b.WriteString(`	<div class="student">` + "\n")
		b.WriteString("		<h2>" + html.EscapeString(s.Identity) + "</h2>\n")

		b.WriteString(`		<div class="timeline">` + "\n")
		for _, seg := range s.Segments {
			fmt.Fprintf(&b, `			<div class="segment %s" style="flex: %g;" title="%s - %s"></div>`+"\n",
				seg.Status, seg.DurationRatio, seg.Start.Format("15:04:05"), seg.Status)
		}
		b.WriteString("		</div>\n")

		b.WriteString(`		<table>
			<thead>
				<tr><th>Offline start</th><th>Offline end</th><th>Duration (sec)</th></tr>
			</thead>
			<tbody>
`)
		for _, off := range s.Offline {
			fmt.Fprintf(&b, "				<tr><td>%s</td><td>%s</td><td>%d</td></tr>\n",
				off.Start.Format("15:04:05"), off.End.Format("15:04:05"), off.Seconds)
		}
		b.WriteString("			</tbody>\n		</table>\n	</div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return static(b.String())
}
