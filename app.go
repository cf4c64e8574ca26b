package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chazu/brepfacade/pkg/config"
	"github.com/chazu/brepfacade/pkg/engine"
	"github.com/chazu/brepfacade/pkg/kernel"
	"github.com/chazu/brepfacade/pkg/kernel/manifold"
	"github.com/chazu/brepfacade/pkg/kernel/sdfx"
	"github.com/chazu/brepfacade/pkg/kernel/trimesh"
	"github.com/chazu/brepfacade/pkg/metrics"
	"github.com/chazu/brepfacade/pkg/output"
	"github.com/chazu/brepfacade/pkg/tessellate"
)

// App wires the configured kernel, the script engine and the operation
// counters together.
type App struct {
	cfg     *config.Config
	kernel  kernel.Kernel
	engine  *engine.Engine
	metrics *metrics.Recorder
}

// Report is the result of evaluating one script.
type Report struct {
	Objects   []output.ObjectReport
	Errors    []engine.EvalError
	Warnings  []engine.EvalWarning
	Triangles int
}

// OK reports whether the script evaluated without errors.
func (r Report) OK() bool { return len(r.Errors) == 0 }

func newKernel(cfg *config.Config) (kernel.Kernel, error) {
	switch cfg.Kernel {
	case config.KernelTrimesh:
		return trimesh.New(), nil
	case config.KernelSdfx:
		return sdfx.NewWithCells(cfg.Mesh.Cells), nil
	case config.KernelManifold:
		return manifold.New()
	default:
		return nil, fmt.Errorf("unknown kernel %q", cfg.Kernel)
	}
}

// NewApp creates an App for cfg. A nil logger discards facade logging.
func NewApp(cfg *config.Config, logger *log.Logger) (*App, error) {
	k, err := newKernel(cfg)
	if err != nil {
		return nil, err
	}
	rec := metrics.NewRecorder()
	opts := []engine.Option{
		engine.WithTimeout(cfg.Eval.Timeout),
		engine.WithTolerances(cfg.Tolerance.Plane, cfg.Tolerance.Gap),
		engine.WithSegments(cfg.Mesh.Segments),
		engine.WithObserver(rec),
	}
	if logger != nil {
		opts = append(opts, engine.WithLogger(logger))
	}
	return &App{
		cfg:     cfg,
		kernel:  k,
		engine:  engine.NewEngine(k, opts...),
		metrics: rec,
	}, nil
}

// Kernel returns the kernel the app builds with.
func (a *App) Kernel() kernel.Kernel { return a.kernel }

// Metrics returns the operation counters of every evaluation so far.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// Evaluate runs source and measures every object it built.
//
// Errors in the script end up in Report.Errors. The returned error is
// reserved for fatal failures: a timeout, a panic or a tessellation
// failure.
func (a *App) Evaluate(source string) (Report, error) {
	res, err := a.engine.Run(source)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Objects:  []output.ObjectReport{},
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
	if !rep.OK() || res.Model == nil {
		return rep, nil
	}

	meshes, err := tessellate.Tessellate(res.Model, a.kernel)
	if err != nil {
		return Report{}, err
	}
	byName := make(map[string]*kernel.Mesh, len(meshes))
	for _, m := range meshes {
		byName[m.PartName] = m
	}
	rep.Triangles = tessellate.TriangleCount(meshes)

	for _, o := range res.Model.Objects() {
		f := a.engine.Facade(o)
		row := output.ObjectReport{
			Name: o.Name,
			Kind: o.Kind.String(),
			Box:  f.BoundingBox(a.cfg.Tolerance.Gap),
		}
		row.Planar = f.FindPlane(&row.Origin, &row.Normal, a.cfg.Tolerance.Plane) == nil
		if m := byName[o.Name]; m != nil {
			row.Triangles = m.TriangleCount()
		}
		rep.Objects = append(rep.Objects, row)
	}
	return rep, nil
}
