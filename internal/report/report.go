package report

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/zinc-sig/asksnap/internal/question"
)

const (
	DefaultQuestionsFile  = "questions_total.txt"
	DefaultScreenshotsDir = "screenshots"
	DefaultOutputFile     = "问题与截图汇总.xlsx"

	SheetName = "问题与截图"

	// Pictures are shrunk to fit inside this box, keeping aspect ratio.
	MaxImageWidth  = 450
	MaxImageHeight = 280

	// RowHeightPixels is the height of every row that holds a picture.
	RowHeightPixels = 300

	progressEvery = 10
)

var columnWidths = []struct {
	col   string
	width float64
}{
	{"A", 10},
	{"B", 80},
	{"C", 60},
}

// Labels are the fixed strings written into the workbook.
type Labels struct {
	Ordinal    string
	Question   string
	Screenshot string
	NotFound   string
	LoadFailed string
}

var (
	ChineseLabels = Labels{
		Ordinal:    "编号",
		Question:   "问题",
		Screenshot: "截图",
		NotFound:   "未找到截图",
		LoadFailed: "图片加载失败",
	}
	EnglishLabels = Labels{
		Ordinal:    "No.",
		Question:   "Question",
		Screenshot: "Screenshot",
		NotFound:   "not found",
		LoadFailed: "load failed",
	}
)

// LabelsFor returns the label set for lang ("zh" or "en").
func LabelsFor(lang string) (Labels, error) {
	switch lang {
	case "", "zh":
		return ChineseLabels, nil
	case "en":
		return EnglishLabels, nil
	default:
		return Labels{}, fmt.Errorf("unsupported language %q (supported: zh, en)", lang)
	}
}

type Options struct {
	QuestionsFile  string
	ScreenshotsDir string
	OutputFile     string
	Labels         Labels
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.QuestionsFile == "" {
		o.QuestionsFile = DefaultQuestionsFile
	}
	if o.ScreenshotsDir == "" {
		o.ScreenshotsDir = DefaultScreenshotsDir
	}
	if o.OutputFile == "" {
		o.OutputFile = DefaultOutputFile
	}
	if o.Labels == (Labels{}) {
		o.Labels = ChineseLabels
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Summary counts what Build put in the workbook.
type Summary struct {
	OutputFile string `json:"output_file"`
	Questions  int    `json:"questions"`
	Embedded   int    `json:"embedded"`
	Missing    int    `json:"missing"`
	Failed     int    `json:"failed"`
}

// Build writes one row per question with its screenshot embedded in column C.
// Missing or unreadable screenshots are recorded as text in the cell.
func Build(ctx context.Context, opts Options) (*Summary, error) {
	opts = opts.withDefaults()
	logger := opts.Logger

	questions, err := question.Load(opts.QuestionsFile)
	if err != nil {
		return nil, err
	}
	logger.Info("found questions", zap.Int("count", len(questions)))

	f := excelize.NewFile()
	defer f.Close()

	styles, err := setupSheet(f, opts.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare sheet: %w", err)
	}

	entries := listScreenshots(opts.ScreenshotsDir)
	rowHeight, _ := PixelsToPoints(RowHeightPixels).Float64()
	summary := &Summary{OutputFile: opts.OutputFile, Questions: len(questions)}

	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := i + 2
		qLogger := logger.With(zap.Int("ordinal", q.Ordinal))

		if err := writeQuestion(f, row, q, styles); err != nil {
			return nil, err
		}

		picCell, _ := excelize.JoinCellName("C", row)
		name := matchScreenshot(entries, q.Ordinal)
		if name == "" {
			summary.Missing++
			qLogger.Warn("no screenshot found")
			if err := f.SetCellValue(SheetName, picCell, opts.Labels.NotFound); err != nil {
				return nil, err
			}
			continue
		}

		path := filepath.Join(opts.ScreenshotsDir, name)
		if err := embedPicture(f, picCell, path, rowHeight); err != nil {
			summary.Failed++
			qLogger.Error("failed to embed screenshot", zap.String("path", path), zap.Error(err))
			if err := f.SetCellValue(SheetName, picCell, opts.Labels.LoadFailed); err != nil {
				return nil, err
			}
			continue
		}
		summary.Embedded++

		if row%progressEvery == 0 {
			logger.Info("progress", zap.Int("processed", row-1))
		}
	}

	if dir := filepath.Dir(opts.OutputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := f.SaveAs(opts.OutputFile); err != nil {
		return nil, fmt.Errorf("failed to save workbook %s: %w", opts.OutputFile, err)
	}

	logger.Info("workbook saved",
		zap.String("path", opts.OutputFile),
		zap.Int("questions", summary.Questions),
		zap.Int("embedded", summary.Embedded),
		zap.Int("missing", summary.Missing),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

type sheetStyles struct {
	centered int
	wrapped  int
}

func setupSheet(f *excelize.File, labels Labels) (sheetStyles, error) {
	var styles sheetStyles

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return styles, err
	}
	for _, cw := range columnWidths {
		if err := f.SetColWidth(SheetName, cw.col, cw.col, cw.width); err != nil {
			return styles, err
		}
	}

	var err error
	styles.centered, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styles, err
	}
	styles.wrapped, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return styles, err
	}

	header := []any{labels.Ordinal, labels.Question, labels.Screenshot}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return styles, err
	}
	if err := f.SetCellStyle(SheetName, "A1", "C1", styles.centered); err != nil {
		return styles, err
	}
	return styles, nil
}

func writeQuestion(f *excelize.File, row int, q question.Question, styles sheetStyles) error {
	ordinalCell, _ := excelize.JoinCellName("A", row)
	questionCell, _ := excelize.JoinCellName("B", row)

	if err := f.SetCellValue(SheetName, ordinalCell, q.Ordinal); err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, questionCell, q.Text); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, ordinalCell, ordinalCell, styles.centered); err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, questionCell, questionCell, styles.wrapped)
}

func embedPicture(f *excelize.File, cell, path string, rowHeight float64) error {
	width, height, err := imageSize(path)
	if err != nil {
		return err
	}
	scale, _ := FitScale(width, height).Float64()

	_, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return err
	}
	if err := f.SetRowHeight(SheetName, row, rowHeight); err != nil {
		return err
	}
	return f.AddPicture(SheetName, cell, path, &excelize.GraphicOptions{
		ScaleX: scale,
		ScaleY: scale,
	})
}

func imageSize(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, fmt.Errorf("image %s has no size", path)
	}
	return cfg.Width, cfg.Height, nil
}

// FitScale returns min(MaxImageWidth/w, MaxImageHeight/h).
func FitScale(width, height int) decimal.Decimal {
	if width <= 0 || height <= 0 {
		return decimal.Zero
	}
	sx := decimal.NewFromInt(MaxImageWidth).Div(decimal.NewFromInt(int64(width)))
	sy := decimal.NewFromInt(MaxImageHeight).Div(decimal.NewFromInt(int64(height)))
	return decimal.Min(sx, sy)
}

// PixelsToPoints converts screen pixels to points at 0.75pt/px.
func PixelsToPoints(px int) decimal.Decimal {
	return decimal.NewFromInt(int64(px)).Mul(decimal.RequireFromString("0.75"))
}

// FindScreenshot returns the path of the first file in dir, by name, whose
// name starts with question_<ordinal>_. An unreadable dir matches nothing.
func FindScreenshot(dir string, ordinal int) (string, bool) {
	name := matchScreenshot(listScreenshots(dir), ordinal)
	if name == "" {
		return "", false
	}
	return filepath.Join(dir, name), true
}

func listScreenshots(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func matchScreenshot(names []string, ordinal int) string {
	for _, name := range names {
		if question.MatchesOrdinal(name, ordinal) {
			return name
		}
	}
	return ""
}
