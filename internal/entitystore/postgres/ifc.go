package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const (
	tIfcElements     = "ifc_elements"
	tIfcPropertySets = "ifc_property_sets"
	tIfcProperties   = "ifc_properties"
	tIfcQuantitySets = "ifc_quantity_sets"
	tIfcQuantities   = "ifc_quantities"

	// bulkInsertBatchSize bounds a single multi-row INSERT so Postgres's
	// bind-parameter limit is never hit for wide element batches.
	bulkInsertBatchSize = 500
)

func (c *Client) BulkInsertIfcElements(ctx context.Context, elements []*domain.IfcElement) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	return c.withTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(elements); start += bulkInsertBatchSize {
			end := min(start+bulkInsertBatchSize, len(elements))
			b := psql.Insert(tIfcElements).Columns("id", "model_version_id", "entity_label", "global_id",
				"name", "type_name", "description", "object_type", "type_object_name", "type_object_type")
			for _, e := range elements[start:end] {
				b = b.Values(e.ID, e.ModelVersionID, e.EntityLabel, e.GlobalID, e.Name, e.TypeName,
					e.Description, e.ObjectType, e.TypeObjectName, e.TypeObjectType)
			}
			query, args, err := b.ToSql()
			if err != nil {
				return apperrors.NewInternal(err, "postgres: build bulk insert elements")
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return apperrors.NewTransient(err, "postgres: bulk insert elements")
			}
		}
		return nil
	})
}

func (c *Client) BulkInsertPropertySets(ctx context.Context, sets []*domain.IfcPropertySet) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	return c.withTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(sets); start += bulkInsertBatchSize {
			end := min(start+bulkInsertBatchSize, len(sets))
			b := psql.Insert(tIfcPropertySets).Columns("id", "element_id", "name", "global_id", "is_type_property_set")
			for _, s := range sets[start:end] {
				b = b.Values(s.ID, s.ElementID, s.Name, s.GlobalID, s.IsTypePropertySet)
			}
			query, args, err := b.ToSql()
			if err != nil {
				return apperrors.NewInternal(err, "postgres: build bulk insert property sets")
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return apperrors.NewTransient(err, "postgres: bulk insert property sets")
			}
		}
		return nil
	})
}

func (c *Client) BulkInsertProperties(ctx context.Context, props []*domain.IfcProperty) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	return c.withTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(props); start += bulkInsertBatchSize {
			end := min(start+bulkInsertBatchSize, len(props))
			b := psql.Insert(tIfcProperties).Columns("id", "property_set_id", "name", "value", "value_type", "unit")
			for _, p := range props[start:end] {
				b = b.Values(p.ID, p.PropertySetID, p.Name, p.Value, p.ValueType, p.Unit)
			}
			query, args, err := b.ToSql()
			if err != nil {
				return apperrors.NewInternal(err, "postgres: build bulk insert properties")
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return apperrors.NewTransient(err, "postgres: bulk insert properties")
			}
		}
		return nil
	})
}

func (c *Client) BulkInsertQuantitySets(ctx context.Context, sets []*domain.IfcQuantitySet) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	return c.withTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(sets); start += bulkInsertBatchSize {
			end := min(start+bulkInsertBatchSize, len(sets))
			b := psql.Insert(tIfcQuantitySets).Columns("id", "element_id", "name", "global_id")
			for _, s := range sets[start:end] {
				b = b.Values(s.ID, s.ElementID, s.Name, s.GlobalID)
			}
			query, args, err := b.ToSql()
			if err != nil {
				return apperrors.NewInternal(err, "postgres: build bulk insert quantity sets")
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return apperrors.NewTransient(err, "postgres: bulk insert quantity sets")
			}
		}
		return nil
	})
}

func (c *Client) BulkInsertQuantities(ctx context.Context, qtys []*domain.IfcQuantity) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	return c.withTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(qtys); start += bulkInsertBatchSize {
			end := min(start+bulkInsertBatchSize, len(qtys))
			b := psql.Insert(tIfcQuantities).Columns("id", "quantity_set_id", "name", "value", "unit")
			for _, q := range qtys[start:end] {
				b = b.Values(q.ID, q.QuantitySetID, q.Name, q.Value, q.Unit)
			}
			query, args, err := b.ToSql()
			if err != nil {
				return apperrors.NewInternal(err, "postgres: build bulk insert quantities")
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return apperrors.NewTransient(err, "postgres: bulk insert quantities")
			}
		}
		return nil
	})
}

func (c *Client) ListElementsForVersion(ctx context.Context, modelVersionID string, limit, offset int) ([]*domain.IfcElement, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "model_version_id", "entity_label", "global_id", "name", "type_name",
		"description", "object_type", "type_object_name", "type_object_type").
		From(tIfcElements).
		Where(sq.Eq{"model_version_id": modelVersionID}).
		OrderBy("entity_label").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list elements")
	}
	var rows []domain.IfcElement
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list elements for version")
	}
	out := make([]*domain.IfcElement, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (c *Client) GetElementByGlobalID(ctx context.Context, modelVersionID, globalID string) (*domain.IfcElement, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "model_version_id", "entity_label", "global_id", "name", "type_name",
		"description", "object_type", "type_object_name", "type_object_type").
		From(tIfcElements).
		Where(sq.Eq{"model_version_id": modelVersionID, "global_id": globalID}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build get element by global id")
	}
	var e domain.IfcElement
	if err := c.get(ctx, &e, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: element %s not found in version %s", globalID, modelVersionID)
	}
	return &e, nil
}

func (c *Client) GetElementByEntityLabel(ctx context.Context, modelVersionID string, entityLabel int) (*domain.IfcElement, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "model_version_id", "entity_label", "global_id", "name", "type_name",
		"description", "object_type", "type_object_name", "type_object_type").
		From(tIfcElements).
		Where(sq.Eq{"model_version_id": modelVersionID, "entity_label": entityLabel}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build get element by entity label")
	}
	var e domain.IfcElement
	if err := c.get(ctx, &e, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: element %d not found in version %s", entityLabel, modelVersionID)
	}
	return &e, nil
}

func (c *Client) ListPropertySets(ctx context.Context, elementID string) ([]*domain.IfcPropertySet, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "element_id", "name", "global_id", "is_type_property_set").
		From(tIfcPropertySets).Where(sq.Eq{"element_id": elementID}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list property sets")
	}
	var rows []domain.IfcPropertySet
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list property sets")
	}
	out := make([]*domain.IfcPropertySet, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (c *Client) ListProperties(ctx context.Context, propertySetID string) ([]*domain.IfcProperty, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "property_set_id", "name", "value", "value_type", "unit").
		From(tIfcProperties).Where(sq.Eq{"property_set_id": propertySetID}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build list properties")
	}
	var rows []domain.IfcProperty
	if err := c.sel(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewTransient(err, "postgres: list properties")
	}
	out := make([]*domain.IfcProperty, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}
