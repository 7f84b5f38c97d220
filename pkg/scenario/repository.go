package scenario

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kawazanyo/kawazanyo/pkg/budget"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// LoadState returns the stored state, found is false when nothing was stored yet.
	LoadState(ctx context.Context) (state State, found bool, err error)
	// SaveState replaces the stored state as a whole.
	SaveState(ctx context.Context, state State) error
}

const (
	kindBase = "base"
	kindSim  = "sim"
)

// RepositoryImpl stores the state in plain tables through database/sql. Queries only use
// syntax shared by Postgres and SQLite.
type RepositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) LoadState(ctx context.Context) (State, bool, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return State{}, false, err
	}
	defer tx.Rollback()

	var state State
	err = tx.QueryRowContext(ctx, `SELECT comparison_span, is_pro FROM app_settings WHERE id = 1`).
		Scan(&state.ComparisonSpan, &state.IsPro)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		err := fmt.Errorf("could not query settings: %w", err)
		log.Error(err)
		return State{}, false, err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, name, kind FROM scenario ORDER BY position`)
	if err != nil {
		err := fmt.Errorf("could not query scenarios: %w", err)
		log.Error(err)
		return State{}, false, err
	}
	foundBase := false
	for rows.Next() {
		var id, name, kind string
		if err := rows.Scan(&id, &name, &kind); err != nil {
			rows.Close()
			return State{}, false, fmt.Errorf("error scanning scenario row: %w", err)
		}
		if kind == kindBase {
			state.Base = BaseScenario{Id: id, Name: name}
			foundBase = true
			continue
		}
		state.Scenarios = append(state.Scenarios, SimScenario{Id: id, Name: name})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return State{}, false, fmt.Errorf("error iterating over scenario rows: %w", err)
	}
	if !foundBase {
		return State{}, false, fmt.Errorf("stored state has no base scenario")
	}

	items, err := loadItems(ctx, tx)
	if err != nil {
		return State{}, false, err
	}
	deleted, err := loadIdLists(ctx, tx, `SELECT scenario_id, item_id FROM deleted_item ORDER BY scenario_id, position`)
	if err != nil {
		return State{}, false, err
	}
	orders, err := loadIdLists(ctx, tx, `SELECT scenario_id, item_id FROM scenario_item_order ORDER BY scenario_id, position`)
	if err != nil {
		return State{}, false, err
	}

	actuals, err := loadActuals(ctx, tx)
	if err != nil {
		return State{}, false, err
	}
	state.Actuals = actuals

	state.Base.Items = items[state.Base.Id]
	for i := range state.Scenarios {
		id := state.Scenarios[i].Id
		state.Scenarios[i].Overrides = items[id]
		state.Scenarios[i].DeletedItemIds = deleted[id]
		state.Scenarios[i].ItemOrder = orders[id]
	}

	if err := tx.Commit(); err != nil {
		return State{}, false, fmt.Errorf("could not commit transaction: %w", err)
	}
	return state, true, nil
}

func (r *RepositoryImpl) SaveState(ctx context.Context, state State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"monthly_actual", "scenario_item_order", "deleted_item", "budget_item", "scenario", "app_settings"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			err := fmt.Errorf("could not clear %s: %w", table, err)
			log.Error(err)
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO app_settings (id, comparison_span, is_pro) VALUES (1, $1, $2)`,
		state.ComparisonSpan, state.IsPro)
	if err != nil {
		err := fmt.Errorf("could not store settings: %w", err)
		log.Error(err)
		return err
	}

	if err := insertScenario(ctx, tx, state.Base.Id, state.Base.Name, kindBase, 0); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, state.Base.Id, state.Base.Items); err != nil {
		return err
	}
	for pos, sim := range state.Scenarios {
		if err := insertScenario(ctx, tx, sim.Id, sim.Name, kindSim, pos+1); err != nil {
			return err
		}
		if err := insertItems(ctx, tx, sim.Id, sim.Overrides); err != nil {
			return err
		}
		if err := insertIds(ctx, tx, `INSERT INTO deleted_item (scenario_id, position, item_id) VALUES ($1, $2, $3)`, sim.Id, sim.DeletedItemIds); err != nil {
			return err
		}
		if err := insertIds(ctx, tx, `INSERT INTO scenario_item_order (scenario_id, position, item_id) VALUES ($1, $2, $3)`, sim.Id, sim.ItemOrder); err != nil {
			return err
		}
	}
	if err := insertActuals(ctx, tx, state.Actuals); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

func insertScenario(ctx context.Context, tx *sql.Tx, id, name, kind string, position int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO scenario (id, name, kind, position) VALUES ($1, $2, $3, $4)`,
		id, name, kind, position)
	if err != nil {
		err := fmt.Errorf("could not store scenario %s: %w", id, err)
		log.Error(err)
		return err
	}
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, scenarioId string, items []budget.BudgetItem) error {
	query := `INSERT INTO budget_item (
					scenario_id,
					item_id,
					position,
					name,
					amount,
					kind,
					category,
					frequency_kind,
					interval_months,
					start_month,
					end_month
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	for pos, item := range items {
		var endMonth sql.NullInt64
		if item.EndMonth != nil {
			endMonth = sql.NullInt64{Int64: int64(*item.EndMonth), Valid: true}
		}
		_, err := tx.ExecContext(ctx, query,
			scenarioId,
			item.Id,
			pos,
			item.Name,
			item.Amount,
			string(item.Kind),
			item.Category,
			string(item.FrequencyKind),
			item.Interval,
			item.StartMonth,
			endMonth,
		)
		if err != nil {
			err := fmt.Errorf("could not store item %s of scenario %s: %w", item.Id, scenarioId, err)
			log.Error(err)
			return err
		}
	}
	return nil
}

func insertIds(ctx context.Context, tx *sql.Tx, query, scenarioId string, ids []string) error {
	for pos, id := range ids {
		if _, err := tx.ExecContext(ctx, query, scenarioId, pos, id); err != nil {
			err := fmt.Errorf("could not store id list of scenario %s: %w", scenarioId, err)
			log.Error(err)
			return err
		}
	}
	return nil
}

func insertActuals(ctx context.Context, tx *sql.Tx, actuals []MonthlyActual) error {
	query := `INSERT INTO monthly_actual (scenario_id, item_id, month, position, amount) VALUES ($1, $2, $3, $4, $5)`
	for pos, actual := range actuals {
		if _, err := tx.ExecContext(ctx, query, actual.ScenarioId, actual.ItemId, actual.Month, pos, actual.Amount); err != nil {
			err := fmt.Errorf("could not store actual of item %s in %s: %w", actual.ItemId, actual.Month, err)
			log.Error(err)
			return err
		}
	}
	return nil
}

func loadActuals(ctx context.Context, tx *sql.Tx) ([]MonthlyActual, error) {
	rows, err := tx.QueryContext(ctx, `SELECT scenario_id, item_id, month, amount FROM monthly_actual ORDER BY position`)
	if err != nil {
		err := fmt.Errorf("could not query actuals: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var actuals []MonthlyActual
	for rows.Next() {
		var actual MonthlyActual
		if err := rows.Scan(&actual.ScenarioId, &actual.ItemId, &actual.Month, &actual.Amount); err != nil {
			return nil, fmt.Errorf("error scanning actual row: %w", err)
		}
		actuals = append(actuals, actual)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over actual rows: %w", err)
	}
	return actuals, nil
}

func loadItems(ctx context.Context, tx *sql.Tx) (map[string][]budget.BudgetItem, error) {
	rows, err := tx.QueryContext(ctx, `SELECT
				scenario_id,
				item_id,
				name,
				amount,
				kind,
				category,
				frequency_kind,
				interval_months,
				start_month,
				end_month
			FROM budget_item ORDER BY scenario_id, position`)
	if err != nil {
		err := fmt.Errorf("could not query items: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	items := map[string][]budget.BudgetItem{}
	for rows.Next() {
		var (
			scenarioId    string
			item          budget.BudgetItem
			kind          string
			frequencyKind string
			endMonth      sql.NullInt64
		)
		if err := rows.Scan(
			&scenarioId,
			&item.Id,
			&item.Name,
			&item.Amount,
			&kind,
			&item.Category,
			&frequencyKind,
			&item.Interval,
			&item.StartMonth,
			&endMonth,
		); err != nil {
			err := fmt.Errorf("error scanning item row: %w", err)
			log.Error(err)
			return nil, err
		}
		item.Kind = budget.Kind(kind)
		item.FrequencyKind = budget.FrequencyKind(frequencyKind)
		if endMonth.Valid {
			end := int(endMonth.Int64)
			item.EndMonth = &end
		}
		items[scenarioId] = append(items[scenarioId], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over item rows: %w", err)
	}
	return items, nil
}

func loadIdLists(ctx context.Context, tx *sql.Tx, query string) (map[string][]string, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query id list: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	lists := map[string][]string{}
	for rows.Next() {
		var scenarioId, itemId string
		if err := rows.Scan(&scenarioId, &itemId); err != nil {
			return nil, fmt.Errorf("error scanning id row: %w", err)
		}
		lists[scenarioId] = append(lists[scenarioId], itemId)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over id rows: %w", err)
	}
	return lists, nil
}
