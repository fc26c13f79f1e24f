package dashboard

// RenderTarget is the capability set a display surface offers. Any chart
// widget or panel implementing these four operations can be driven by Render.
type RenderTarget interface {
	SetSeries(candles []Candle)
	FitView()
	SetText(id FieldID, value string)
	SetList(items []NewsItem)
}

// Render pushes vm to t. An empty candle series leaves the chart untouched.
// Calling Render twice with the same model yields the same visible state.
func Render(t RenderTarget, vm ViewModel) {
	if t == nil {
		return
	}
	if len(vm.Candles) > 0 {
		series := make([]Candle, len(vm.Candles))
		copy(series, vm.Candles)
		t.SetSeries(series)
		t.FitView()
	}
	for _, f := range vm.Fields() {
		t.SetText(f.ID, f.Value)
	}
	items := make([]NewsItem, len(vm.News))
	copy(items, vm.News)
	t.SetList(items)
}

// MultiTarget fans every call out to several surfaces in order.
type MultiTarget []RenderTarget

func (m MultiTarget) SetSeries(c []Candle) {
	for _, t := range m {
		t.SetSeries(c)
	}
}

func (m MultiTarget) FitView() {
	for _, t := range m {
		t.FitView()
	}
}

func (m MultiTarget) SetText(id FieldID, v string) {
	for _, t := range m {
		t.SetText(id, v)
	}
}

func (m MultiTarget) SetList(items []NewsItem) {
	for _, t := range m {
		t.SetList(items)
	}
}
