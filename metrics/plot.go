package metrics

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/catnb/dataset"
	"github.com/YuminosukeSato/catnb/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// confusionGrid は ConfusionMatrix を plotter.GridXYZ として見せるアダプタ。
// 正解ラベルの先頭が図の上端に来るよう行を反転します。
type confusionGrid struct {
	cm *ConfusionMatrix
}

func (g confusionGrid) Dims() (c, r int) {
	n := g.cm.Size()
	return n, n
}

func (g confusionGrid) Z(c, r int) float64 {
	n := g.cm.Size()
	return float64(g.cm.At(n-1-r, c))
}

func (g confusionGrid) X(c int) float64 { return float64(c) }

func (g confusionGrid) Y(r int) float64 { return float64(r) }

// PlotConfusionMatrix は混同行列をヒートマップとして画像に保存します。
// 形式は path の拡張子（.png, .svg, .pdf など）で決まります。
func PlotConfusionMatrix(cm *ConfusionMatrix, path string) error {
	if cm == nil || cm.Size() == 0 {
		return errors.NewInvalidInputError("PlotConfusionMatrix", "confusion matrix is empty")
	}
	if filepath.Ext(path) == "" {
		return errors.NewInvalidInputErrorf("PlotConfusionMatrix", "output path %q has no image extension", path)
	}

	p, err := newConfusionPlot(cm)
	if err != nil {
		return err
	}
	side := vg.Length(1+cm.Size()) * vg.Inch
	side = max(side, 4*vg.Inch)
	if err := p.Save(side, side, path); err != nil {
		return errors.Wrapf(err, "save confusion matrix plot to %s", path)
	}
	return nil
}

func newConfusionPlot(cm *ConfusionMatrix) (*plot.Plot, error) {
	n := cm.Size()
	grid := confusionGrid{cm: cm}

	heat := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	if heat.Max == heat.Min {
		// 全セルが同じ値だとパレットの範囲が潰れる
		heat.Max = heat.Min + 1
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Confusion matrix (accuracy %.2f%%)", 100*cm.Accuracy())
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "True"
	p.Add(heat)

	xy := make(plotter.XYs, 0, n*n)
	texts := make([]string, 0, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			xy = append(xy, plotter.XY{X: float64(c), Y: float64(r)})
			texts = append(texts, fmt.Sprint(int(grid.Z(c, r))))
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xy, Labels: texts})
	if err != nil {
		return nil, errors.Wrap(err, "build cell labels")
	}
	p.Add(labels)

	names := cm.Labels()
	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	for i, l := range names {
		name := truncateLabel(dataset.Format(l))
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
		yTicks[n-1-i] = plot.Tick{Value: float64(n - 1 - i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	return p, nil
}

func truncateLabel(s string) string {
	const limit = 16
	if len(s) <= limit {
		return s
	}
	return strings.TrimSpace(s[:limit-1]) + "…"
}
