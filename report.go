package composer

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"
)

// Report is the human readable summary of a run: the generated melodies and
// the parameters that were sent to the composer.
type Report struct {
	Set    *MelodySet
	Params Params
}

const reportTemplate = `Generated Melodies:
{{- range $i, $m := .Set.Melodies }}
Melody {{ add1 $i }}: {{ $m }}{{ with fitness $.Set $i }} (fitness {{ printf "%.3f" . }}){{ end }}
{{- end }}
===Sent data:
id: {{ .Set.ID | default "-" }}
mode: {{ .Params.Mode }}
scale: {{ .Params.Scale }}
scale pitch classes: {{ .Set.ScalePitchClasses | join " " }}
note range: {{ .Params.NoteRange.Low }}-{{ .Params.NoteRange.High }}
measures: {{ .Params.Measures }} ({{ .Params.Meter }}, note duration {{ .Params.NoteDuration }})
diversity: {{ .Params.Diversity }}
dynamics: {{ .Params.Dynamics }}
arousal: {{ .Params.Arousal }}
valence: {{ .Params.Valence }}
jazziness: {{ .Params.Jazziness }}
weirdness: {{ .Params.Weirdness }}
pause: {{ .Params.PauseAmount }}
population: {{ .Params.PopulationSize }} x {{ .Params.Generations }} generations
`

var reportTmpl = template.Must(template.New("report").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
	"fitness": func(s *MelodySet, i int) any {
		if i < len(s.Fitness) {
			return s.Fitness[i]
		}
		return nil
	},
}).Parse(reportTemplate))

// Render writes the report as text.
func (r Report) Render(w io.Writer) error {
	if r.Set == nil {
		r.Set = &MelodySet{}
	}
	if err := reportTmpl.Execute(w, r); err != nil {
		return fmt.Errorf("could not render report: %w", err)
	}
	return nil
}
