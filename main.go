package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dsadriel/defesa-facil/calendar"
	"github.com/dsadriel/defesa-facil/defense"
	"github.com/dsadriel/defesa-facil/defense/extract"
	"github.com/dsadriel/defesa-facil/defense/store"
	"github.com/dsadriel/defesa-facil/dsl"
	"github.com/dsadriel/defesa-facil/layout"
	"github.com/dsadriel/defesa-facil/portal"
	"github.com/dsadriel/defesa-facil/renderer"
	canvasrenderer "github.com/dsadriel/defesa-facil/renderer/canvas"
	"github.com/dsadriel/defesa-facil/shortener"
)

// options 汇总命令行参数。
type options struct {
	template    string
	assets      string
	records     string
	posEmail    string
	tccEmail    string
	course      string
	portalHTML  string
	fromPortal  bool
	credentials string
	store       string
	calendar    string
	out         string
	cards       string
	seq         string
	semestre    string
	titulo      string
	escala      float64
	programa    string
	legenda     bool
	debug       string
	outlines    bool
	watch       bool
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.template, "template", "templates/defesas.papyrus", "卡片模板文件路径")
	flag.StringVar(&opts.assets, "assets", "", "背景与图标所在目录（默认为模板所在目录）")
	flag.StringVar(&opts.records, "records", "", "答辩记录 JSON 文件")
	flag.StringVar(&opts.posEmail, "email", "", "研究生答辩公告邮件（纯文本）")
	flag.StringVar(&opts.tccEmail, "tcc-email", "", "本科答辩公告邮件（纯文本）")
	flag.StringVar(&opts.course, "course", "Ciência da Computação", "本科邮件对应的课程名")
	flag.StringVar(&opts.portalHTML, "html", "", "门户导出的答辩列表 HTML 文件")
	flag.BoolVar(&opts.fromPortal, "portal", false, "登录门户并下载答辩列表")
	flag.StringVar(&opts.credentials, "credentials", "credenciais.json", "凭据 JSON 文件")
	flag.StringVar(&opts.store, "store", "", "已知记录 JSON；设置后只为新增或更新的记录生成图片")
	flag.StringVar(&opts.calendar, "calendar", "", "日历 CSV 输出路径")
	flag.StringVar(&opts.out, "out", "output/imagens", "图片输出目录")
	flag.StringVar(&opts.cards, "cards", "", "只生成这些模板的卡片（逗号分隔）")
	flag.StringVar(&opts.seq, "seq", "", "图片编号 JSON，运行结束后写回")
	flag.StringVar(&opts.semestre, "semestre", "", "绑定到 ${Semestre} 的学期")
	flag.StringVar(&opts.titulo, "titulo", "", "绑定到 ${TituloCard} 的卡片标题")
	flag.Float64Var(&opts.escala, "escala", 1, "论文标题字号倍率，绑定到 ${Escala}")
	flag.StringVar(&opts.programa, "programa", "PPGC", "配文中的项目名")
	flag.BoolVar(&opts.legenda, "legenda", false, "向标准输出打印社交媒体配文")
	flag.StringVar(&opts.debug, "debug", "", "布局调试 JSON 输出路径")
	flag.BoolVar(&opts.outlines, "outlines", false, "用黄色描出所有文本框")
	flag.BoolVar(&opts.watch, "watch", false, "模板变化时重新生成图片")
	flag.BoolVar(&opts.verbose, "v", false, "输出调试日志")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		log.Fatalf("生成失败: %v", err)
	}
}

// run 串联记录获取、差异比较、日历导出与卡片渲染。
func run(ctx context.Context, opts options, stdout io.Writer, logger *slog.Logger) error {
	records, err := gatherRecords(ctx, opts, logger)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New("没有可用的答辩记录，请使用 -records、-email、-tcc-email、-html 或 -portal")
	}

	if opts.store != "" {
		records, err = mergeStore(opts.store, records, logger)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			logger.Info("没有新增或更新的答辩")
			return nil
		}
	}

	if opts.calendar != "" {
		if err := writeCalendar(opts.calendar, records); err != nil {
			return err
		}
		logger.Info("已生成日历", "path", opts.calendar, "events", len(records))
	}

	if opts.legenda {
		for _, r := range records {
			fmt.Fprintf(stdout, "%s\n\n", defense.PostingText(cardTitle(opts, r), opts.programa, r))
		}
	}

	if opts.template == "" {
		return nil
	}
	if err := renderCards(ctx, opts, records, logger); err != nil {
		return err
	}
	if opts.watch {
		return watchTemplate(ctx, opts.template, logger, func() error {
			return renderCards(ctx, opts, records, logger)
		})
	}
	return nil
}

// renderCards 解析模板、计算布局并并发写出 PNG。
func renderCards(ctx context.Context, opts options, records []defense.Record, logger *slog.Logger) error {
	doc, err := dsl.ParseFile(opts.template)
	if err != nil {
		return fmt.Errorf("解析模板失败: %w", err)
	}

	assets := opts.assets
	if assets == "" {
		assets = filepath.Dir(opts.template)
	}
	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: assets, Logger: logger})

	seq, err := loadSequence(opts.seq)
	if err != nil {
		return err
	}

	vars := map[string]string{}
	if opts.semestre != "" {
		vars["Semestre"] = opts.semestre
	}
	if opts.titulo != "" {
		vars["TituloCard"] = opts.titulo
	}
	if opts.escala > 0 && opts.escala != 1 {
		vars["Escala"] = strconv.FormatFloat(opts.escala, 'f', -1, 64)
	}

	result, err := layout.Build(doc, defense.SortByDate(records), layout.BuildOptions{
		Typesetter: r,
		Debug:      layout.DebugOptions{Outlines: opts.outlines},
		Vars:       vars,
		Templates:  splitList(opts.cards),
		Sequence:   seq,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}

	if opts.debug != "" {
		if err := layout.WriteDebugJSON(result, opts.debug); err != nil {
			return fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}

	paths, err := renderer.WriteAll(ctx, r, result.Cards, renderer.WriteOptions{Dir: opts.out, Logger: logger})
	if err != nil {
		return err
	}
	logger.Info("卡片生成完成", "count", len(paths), "dir", opts.out)

	if opts.seq != "" && !opts.watch {
		if err := saveSequence(opts.seq, result.Sequence); err != nil {
			return err
		}
	}
	return nil
}

// gatherRecords 依次读取各个来源，远程链接通过 TinyURL 缩短（配置了 token 时）。
func gatherRecords(ctx context.Context, opts options, logger *slog.Logger) ([]defense.Record, error) {
	// 只有门户登录必须提供凭据；其余来源在凭据存在时才缩短链接。
	var cfg Config
	if _, statErr := os.Stat(opts.credentials); opts.fromPortal || statErr == nil {
		var err error
		cfg, err = LoadConfig(opts.credentials)
		if err != nil {
			return nil, err
		}
	}
	ex, err := newExtractor(cfg, logger)
	if err != nil {
		return nil, err
	}

	var records []defense.Record
	if opts.records != "" {
		loaded, err := store.Load(opts.records)
		if err != nil {
			return nil, fmt.Errorf("读取记录文件失败: %w", err)
		}
		records = append(records, loaded...)
	}
	if opts.posEmail != "" {
		content, err := os.ReadFile(opts.posEmail)
		if err != nil {
			return nil, err
		}
		rec, err := ex.ParsePosEmail(ctx, string(content))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.posEmail, err)
		}
		records = append(records, rec)
	}
	if opts.tccEmail != "" {
		content, err := os.ReadFile(opts.tccEmail)
		if err != nil {
			return nil, err
		}
		parsed, err := ex.ParseTCCEmail(ctx, string(content), opts.course)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.tccEmail, err)
		}
		records = append(records, parsed...)
	}
	if opts.portalHTML != "" {
		f, err := os.Open(opts.portalHTML)
		if err != nil {
			return nil, err
		}
		parsed, err := ex.ParsePortalHTML(ctx, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		records = append(records, parsed...)
	}
	if opts.fromPortal {
		parsed, err := fetchPortal(ctx, cfg, ex, logger)
		if err != nil {
			return nil, err
		}
		records = append(records, parsed...)
	}
	return records, nil
}

func newExtractor(cfg Config, logger *slog.Logger) (*extract.Extractor, error) {
	ex := &extract.Extractor{Logger: logger}
	if cfg.TinyURL.Token == "" {
		return ex, nil
	}
	cache, err := shortener.OpenCache(cfg.aliasCachePath())
	if err != nil {
		return nil, err
	}
	ex.Shortener = &shortener.Client{
		Token:  cfg.TinyURL.Token,
		Email:  cfg.TinyURL.Email,
		Cache:  cache,
		Logger: logger,
	}
	return ex, nil
}

func fetchPortal(ctx context.Context, cfg Config, ex *extract.Extractor, logger *slog.Logger) ([]defense.Record, error) {
	client, err := portal.New(cfg.PortalURL, nil)
	if err != nil {
		return nil, err
	}
	logger.Info("登录门户")
	if err := client.Login(ctx, cfg.Portal); err != nil {
		return nil, err
	}
	body, err := client.Defenses(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ex.ParsePortalHTML(ctx, body)
}

// mergeStore 合并到已知记录，写回主文件与差异文件，返回需要生成图片的记录。
func mergeStore(path string, records []defense.Record, logger *slog.Logger) ([]defense.Record, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	diff := s.Merge(records)
	for _, r := range diff.New {
		logger.Info("新答辩", "aluno", r.Aluno)
	}
	for _, r := range diff.Updated {
		logger.Warn("答辩已更新", "aluno", r.Aluno)
	}
	if diff.Empty() {
		return nil, nil
	}
	if err := s.Save(); err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := store.AppendDiff(base+"-novos.json", base+"_atualizados.json", diff); err != nil {
		return nil, err
	}
	return slices.Concat(diff.New, diff.Updated), nil
}

func writeCalendar(path string, records []defense.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建日历目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := calendar.Write(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadSequence(path string) (defense.Sequence, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var seq defense.Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("解析编号文件 %s 失败: %w", path, err)
	}
	return seq, nil
}

func saveSequence(path string, seq defense.Sequence) error {
	data, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func cardTitle(opts options, r defense.Record) string {
	switch {
	case opts.titulo != "":
		return opts.titulo
	case r.Tipo != "":
		return "Defesa de " + r.Tipo
	default:
		return "Defesa de TCC"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
