// Command tupledb opens a database, loads a small demo dataset, and runs a
// query through the optimizer, printing the chosen plan and its rows.
package main

import (
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"tupledb/internal/config"
	"tupledb/internal/database"
	"tupledb/internal/expression"
	"tupledb/internal/optimizer"
	"tupledb/internal/plan"
	"tupledb/internal/types"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := run(db, cfg, logger); err != nil {
		logger.Fatal("demo failed", zap.Error(err))
	}
}

func run(db *database.Database, cfg *config.Config, logger *zap.Logger) error {
	ctx := db.BeginContext()

	schema := types.NewSchema("scores", []types.Column{
		types.NewColumn("key", types.TypeInt64, types.Constraint{Type: types.ConstraintPrimary}),
		types.NewColumn("name", types.TypeVarchar),
		types.NewColumn("score", types.TypeDouble),
	})
	tbl, err := db.CreateTable(ctx, schema)
	if err != nil {
		return err
	}

	rows := []types.Row{
		types.NewRow(types.NewInt64(0), types.NewVarchar("hello"), types.NewDouble(1.2)),
		types.NewRow(types.NewInt64(3), types.NewVarchar("piyo"), types.NewDouble(12.2)),
		types.NewRow(types.NewInt64(1), types.NewVarchar("world"), types.NewDouble(4.9)),
		types.NewRow(types.NewInt64(2), types.NewVarchar("arise"), types.NewDouble(4.14)),
	}
	for _, row := range rows {
		if _, err := tbl.Insert(ctx.Txn, row); err != nil {
			return err
		}
	}
	if err := db.RefreshStatistics(ctx, "scores"); err != nil {
		return err
	}

	query := database.QueryData{
		From: []string{"scores"},
		Where: expression.NewBinary(
			expression.NewColumnRef("key"),
			expression.OpEq,
			expression.NewConstant(types.NewInt64(2)),
		),
		Select: []expression.NamedExpression{
			expression.NamedColumn("name"),
			expression.NamedColumn("score"),
		},
	}

	opt := optimizer.New(cfg.Optimizer, logger)
	best, err := opt.Optimize(query, ctx)
	if err != nil {
		return err
	}
	fmt.Println(plan.Explain(best))

	op, err := best.EmitExecutor(ctx)
	if err != nil {
		return err
	}
	defer op.Close()
	for {
		row, _, err := op.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		fmt.Println(row)
	}
	return ctx.Commit()
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = level
	}
	return zapCfg.Build()
}
