package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/address-forecast/internal/weather"
)

var pageTemplate = template.Must(template.New("forecast").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Address Forecast</title>
</head>
<body>
<h1>Address Forecast</h1>
<form method="get" action="/forecasts">
  <label for="address">Address</label>
  <input id="address" name="address" type="text" value="{{.Address}}" maxlength="512" placeholder="1 N State St, Chicago, IL">
  <button type="submit">Get forecast</button>
</form>
{{with .Error}}<p class="error">{{.}}</p>{{end}}
{{with .Forecast}}
<section class="forecast">
  <h2>{{.Address}}</h2>
  <p>Current: <strong>{{.Current}}</strong>{{with .Condition}} ({{.}}){{end}}</p>
  <p>High: {{.High}} &middot; Low: {{.Low}}</p>
  {{if .FromCache}}<p class="cached">Served from cache ({{.CacheKey}})</p>{{end}}
</section>
{{end}}
<footer>Forecasts are cached for {{.CacheTTL}}.</footer>
</body>
</html>
`))

type pageData struct {
	Address  string
	Error    string
	Forecast *forecastView
	CacheTTL string
}

type forecastView struct {
	Address   string
	Current   string
	Condition weather.Condition
	High      string
	Low       string
	FromCache bool
	CacheKey  string
}

// forecastPage renders the form and, when an address was submitted, its
// forecast or error message. A blank address just shows the form.
func (h *handler) forecastPage(c *fiber.Ctx) error {
	data := pageData{CacheTTL: weather.TTLDisplay(h.service.CacheTTL())}

	q, err := parseForecastQuery(c)
	if err != nil {
		data.Error = err.Error()
		return h.render(c, fiber.StatusBadRequest, data)
	}
	data.Address = q.Address

	status := fiber.StatusOK
	if strings.TrimSpace(q.Address) != "" {
		result, err := h.service.Fetch(c.UserContext(), q.Address)
		if err != nil {
			var we *weather.Error
			if !errors.As(err, &we) {
				return err
			}
			data.Error = we.Message
			status = StatusFor(we.Code)
		} else {
			data.Forecast = newForecastView(result)
		}
	}

	return h.render(c, status, data)
}

func (h *handler) render(c *fiber.Ctx, status int, data pageData) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.log.ErrorContext(c.UserContext(), "rendering forecast page", "event", "render_failed", "detail", err.Error())
		return err
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

func newForecastView(r weather.Result) *forecastView {
	v := &forecastView{
		Address:   r.Address,
		Current:   formatTemp(r.CurrentTemperature),
		High:      formatTemp(r.High),
		Low:       formatTemp(r.Low),
		FromCache: r.FromCache,
		CacheKey:  r.CacheKey,
	}
	if r.WeatherCode != nil {
		if cond := weather.ConditionFor(*r.WeatherCode); cond != weather.ConditionUnknown {
			v.Condition = cond
		}
	}
	return v
}

func formatTemp(t *float64) string {
	if t == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f°C", *t)
}
