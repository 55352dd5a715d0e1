package renderer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

// TemplateRenderer produces the HTML documents served or stored by slidekit:
// standalone slide documents and the full-screen player page
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses the built-in templates
func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl := template.New("slide").Funcs(template.FuncMap{
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s) // #nosec G203 - slide bodies are sanitized before they are stored
		},
	})

	if _, err := tmpl.Parse(slideDocumentTemplate); err != nil {
		return nil, fmt.Errorf("parsing slide template: %w", err)
	}

	if _, err := tmpl.New("player").Parse(playerTemplate); err != nil {
		return nil, fmt.Errorf("parsing player template: %w", err)
	}

	return &TemplateRenderer{templates: tmpl}, nil
}

// SlideDocument wraps a body fragment into a document at the reference slide size
func (r *TemplateRenderer) SlideDocument(title, body string) (string, error) {
	data := struct {
		Title  string
		Body   string
		Width  int
		Height int
	}{
		Title:  title,
		Body:   body,
		Width:  entities.ReferenceWidth,
		Height: entities.ReferenceHeight,
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "slide", data); err != nil {
		return "", fmt.Errorf("executing slide template: %w", err)
	}
	return buf.String(), nil
}

// RenderPlayer renders the full-screen player page for a presentation
func (r *TemplateRenderer) RenderPlayer(ctx context.Context, p *entities.Presentation) ([]byte, error) {
	data := struct {
		ID          string
		Title       string
		Author      string
		TotalSlides int
		Width       int
		Height      int
		ScaleCap    float64
	}{
		ID:          p.ID,
		Title:       p.Title,
		Author:      p.Author,
		TotalSlides: len(p.Slides),
		Width:       entities.ReferenceWidth,
		Height:      entities.ReferenceHeight,
		ScaleCap:    1.2,
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "player", data); err != nil {
		return nil, fmt.Errorf("executing player template: %w", err)
	}
	return buf.Bytes(), nil
}

const slideDocumentTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
html, body { margin: 0; padding: 0; }
body { position: relative; width: {{.Width}}px; height: {{.Height}}px; overflow: hidden; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; }
body > * { position: absolute; margin: 0; box-sizing: border-box; }
pre, code { font-family: ui-monospace, Menlo, monospace; }
</style>
</head>
<body style="background-color: #ffffff; color: #1f2933">{{safeHTML .Body}}</body>
</html>
`

const playerTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
html, body { margin: 0; padding: 0; width: 100%; height: 100%; overflow: hidden; background: #000; }
#stage { position: absolute; left: 50%; top: 50%; width: {{.Width}}px; height: {{.Height}}px; border: 0; background: #fff; transform-origin: center center; }
#counter { position: absolute; right: 16px; bottom: 12px; color: #aaa; font: 14px sans-serif; }
</style>
</head>
<body>
<iframe id="stage" sandbox="allow-same-origin" title="{{.Title}}"></iframe>
<div id="counter"></div>
<script>
(function () {
  const deck = {{.ID}};
  const total = {{.TotalSlides}};
  const width = {{.Width}}, height = {{.Height}}, cap = {{.ScaleCap}};
  const stage = document.getElementById('stage');
  const counter = document.getElementById('counter');

  function fit() {
    const s = Math.min(window.innerWidth / width, window.innerHeight / height, cap);
    stage.style.transform = 'translate(-50%, -50%) scale(' + s + ')';
  }

  function show(index) {
    fetch('/slides/' + encodeURIComponent(deck) + '/' + index)
      .then(function (r) { return r.json(); })
      .then(function (slide) {
        stage.srcdoc = slide.htmlContent;
        counter.textContent = (index + 1) + ' / ' + total;
      });
  }

  function navigate(action) {
    fetch('/api/player/navigate', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ action: action, width: window.innerWidth, height: window.innerHeight })
    });
  }

  document.addEventListener('keydown', function (e) {
    if (e.key === 'ArrowRight') navigate('next');
    if (e.key === 'ArrowLeft') navigate('previous');
    if (e.key === 'Escape') navigate('close');
  });
  document.addEventListener('click', function () { navigate('next'); });
  document.addEventListener('contextmenu', function (e) { e.preventDefault(); navigate('previous'); });
  window.addEventListener('resize', fit);

  const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
  ws.onmessage = function (msg) {
    const ev = JSON.parse(msg.data);
    if (ev.type === 'navigation' && ev.data && ev.data.state) show(ev.data.state.currentSlide);
  };

  fit();
  navigate('open');
  show(0);
})();
</script>
</body>
</html>
`
