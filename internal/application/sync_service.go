package application

import (
	"context"
	"strconv"
	"time"

	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxAttachedImages = 10

// SyncService runs the product synchronization workflows: creating a
// platform product from an inventory record, and pushing field updates for
// an existing product identified by SKU. It depends on ports, not concrete
// clients.
type SyncService struct {
	inventory ports.InventoryClient
	commerce  ports.CommerceClient
	topology  ports.TopologyStore
	repo      ports.SyncLogRepository
	metrics   ports.MetricsRecorder
	logger    zerolog.Logger

	// priceDelay spaces out per-market price writes so a burst of
	// mutations does not trip the platform's rate limit.
	priceDelay time.Duration
}

// NewSyncService creates a sync service with the default pacing between
// market price writes.
func NewSyncService(
	inventory ports.InventoryClient,
	commerce ports.CommerceClient,
	topology ports.TopologyStore,
	repo ports.SyncLogRepository,
	metrics ports.MetricsRecorder,
	logger zerolog.Logger,
) *SyncService {
	return NewSyncServiceWithOptions(inventory, commerce, topology, repo, metrics, logger, time.Second)
}

// NewSyncServiceWithOptions creates a sync service with explicit pacing.
func NewSyncServiceWithOptions(
	inventory ports.InventoryClient,
	commerce ports.CommerceClient,
	topology ports.TopologyStore,
	repo ports.SyncLogRepository,
	metrics ports.MetricsRecorder,
	logger zerolog.Logger,
	priceDelay time.Duration,
) *SyncService {
	return &SyncService{
		inventory:  inventory,
		commerce:   commerce,
		topology:   topology,
		repo:       repo,
		metrics:    metrics,
		logger:     logger,
		priceDelay: priceDelay,
	}
}

// CreateFromRecord creates a platform product from one inventory record and
// wires up its inventory, metafields, regional prices, and the write-back
// to the inventory store. Only validation and the create call itself are
// fatal; every later step degrades the run to partial success.
//
// When a variant with the record's SKU already exists the workflow reroutes
// to an in-place update of that variant instead of creating a duplicate.
func (s *SyncService) CreateFromRecord(ctx context.Context, recordID string, fields map[string]any) (*domain.SyncReport, error) {
	report := s.newReport("create")
	defer s.finish(report)

	if recordID == "" || len(fields) == 0 {
		err := domain.NewValidationError("missing record_id or fields")
		report.AddFailed(domain.StepValidate, err)
		return report, err
	}

	record := &domain.InventoryRecord{ID: recordID, Fields: fields}
	name := record.String(domain.FieldProductName)
	sku := record.String(domain.FieldSKU)
	if name == "" || sku == "" {
		err := domain.NewValidationError("product name and SKU are required")
		report.AddFailed(domain.StepValidate, err)
		return report, err
	}
	report.SKU = sku
	report.AddOK(domain.StepValidate)

	// An existing variant with this SKU means the product was already
	// synced once; update it in place instead of creating a duplicate.
	existing, err := s.commerce.FindVariantBySKU(ctx, sku)
	if err != nil {
		s.logger.Warn().Err(err).Str("sku", sku).Msg("SKU pre-check failed, proceeding with create")
	}
	if existing != nil {
		s.logger.Info().Str("sku", sku).Str("variantGid", existing.VariantGID).Msg("SKU already exists, updating in place")
		report.Workflow = "create_existing"
		report.ProductID = domain.NumericID(existing.ProductGID)
		report.VariantID = strconv.FormatUint(existing.VariantID, 10)
		s.applyRecordToVariant(ctx, report, record, existing)
		s.writeBack(ctx, report, recordID, report.ProductID)
		return report, nil
	}

	product, qty := s.buildProduct(record, name, sku)
	report.AddOK(domain.StepBuildPayload)

	s.resolveImages(ctx, report, record, name, product)

	created, err := s.commerce.CreateProduct(ctx, product)
	if err != nil {
		report.AddFailed(domain.StepCreate, err)
		return report, err
	}
	report.ProductID = strconv.FormatUint(created.ProductID, 10)
	report.VariantID = strconv.FormatUint(created.VariantID, 10)
	report.AddOK(domain.StepCreate)
	s.logger.Info().
		Str("sku", sku).
		Uint64("productId", created.ProductID).
		Uint64("variantId", created.VariantID).
		Msg("Product created")

	s.setInventory(ctx, report, created.InventoryItemID, int(qty))
	s.setCreateMetafields(ctx, report, record, created)
	s.setMarketPrices(ctx, report, record, domain.VariantGID(created.VariantID))
	s.writeBack(ctx, report, recordID, report.ProductID)

	return report, nil
}

// UpdateBySKU pushes a flat field update (typically a webhook payload) onto
// the existing variant carrying that SKU. Each write is independent and
// best-effort; an unknown SKU fails the run before any mutation.
func (s *SyncService) UpdateBySKU(ctx context.Context, fields map[string]any) (*domain.SyncReport, error) {
	report := s.newReport("update")
	defer s.finish(report)

	record := &domain.InventoryRecord{Fields: fields}
	sku := record.String(domain.FieldSKU)
	if sku == "" {
		err := domain.NewValidationError("SKU missing")
		report.AddFailed(domain.StepValidate, err)
		return report, err
	}
	report.SKU = sku
	report.AddOK(domain.StepValidate)

	found, err := s.commerce.FindVariantBySKU(ctx, sku)
	if err != nil {
		report.AddFailed(domain.StepFindVariant, err)
		return report, err
	}
	if found == nil {
		err := &domain.NotFoundError{Resource: "variant", Key: sku}
		report.AddFailed(domain.StepFindVariant, err)
		return report, err
	}
	report.AddOK(domain.StepFindVariant)
	report.ProductID = domain.NumericID(found.ProductGID)
	report.VariantID = strconv.FormatUint(found.VariantID, 10)

	s.applyRecordToVariant(ctx, report, record, found)
	return report, nil
}

// applyRecordToVariant writes every field present in the record onto an
// existing variant: details, title, default price, size, inventory, and the
// per-market price lists.
func (s *SyncService) applyRecordToVariant(ctx context.Context, report *domain.SyncReport, record *domain.InventoryRecord, ref *domain.VariantRef) {
	title := record.String(domain.FieldTitle)
	if title == "" {
		title = record.String(domain.FieldProductName)
	}
	barcode := record.String(domain.FieldBarcode)

	if title != "" || barcode != "" {
		if err := s.commerce.UpdateVariantDetails(ctx, ref.VariantID, title, barcode); err != nil {
			s.fail(report, domain.StepVariant, err)
		} else {
			report.AddOK(domain.StepVariant)
		}
	} else {
		report.AddSkipped(domain.StepVariant)
	}

	if title != "" {
		productID, err := strconv.ParseUint(domain.NumericID(ref.ProductGID), 10, 64)
		if err == nil {
			err = s.commerce.UpdateProductTitle(ctx, productID, title)
		}
		if err != nil {
			s.fail(report, domain.StepTitle, err)
		} else {
			report.AddOK(domain.StepTitle)
		}
	} else {
		report.AddSkipped(domain.StepTitle)
	}

	if uae := record.MarketPrice(domain.MarketUAE); uae != nil {
		compare := record.OptionalNumber(domain.FieldUAECompare)
		if err := s.commerce.UpdateVariantPrice(ctx, ref.VariantID, *uae, compare); err != nil {
			s.fail(report, domain.StepDefaultPrice, err)
		} else {
			report.AddOK(domain.StepDefaultPrice)
		}
	} else {
		report.AddSkipped(domain.StepDefaultPrice)
	}

	if size := record.String(domain.FieldSize); size != "" {
		if err := s.commerce.SetMetafield(ctx, ref.VariantGID, "custom", "size", "single_line_text_field", size); err != nil {
			s.fail(report, domain.StepMetafields+".size", err)
		} else {
			report.AddOK(domain.StepMetafields + ".size")
		}
	}

	if qty := record.OptionalNumber(domain.FieldQuantity); qty != nil {
		s.setInventory(ctx, report, ref.InventoryItemID, int(*qty))
	} else {
		report.AddSkipped(domain.StepInventory)
	}

	s.setMarketPrices(ctx, report, record, ref.VariantGID)
}

// buildProduct maps inventory fields onto the create payload. Quantity is
// returned separately for the inventory step; weight falls back to the
// standard bottle weight when the record carries none.
func (s *SyncService) buildProduct(record *domain.InventoryRecord, name, sku string) (*domain.NewProduct, float64) {
	qty := record.Number(domain.FieldQuantity)

	weight := record.Number(domain.FieldWeight)
	if weight == 0 {
		weight = domain.DefaultWeightGrams
	}

	var price float64
	if p := record.MarketPrice(domain.MarketUAE); p != nil {
		price = *p
	}

	return &domain.NewProduct{
		Title:       name,
		BodyHTML:    record.String(domain.FieldDescription),
		Vendor:      record.String(domain.FieldBrand),
		ProductType: record.String(domain.FieldType),
		Tags:        record.String(domain.FieldCategory),
		Status:      domain.StatusForQuantity(qty),
		SKU:         sku,
		Price:       price,
		Barcode:     record.String(domain.FieldBarcode),
		WeightGrams: weight,
	}, qty
}

// resolveImages prefers the record's own image links; with none, it falls
// back to a filename search of the platform media library. No image at all
// is not an error.
func (s *SyncService) resolveImages(ctx context.Context, report *domain.SyncReport, record *domain.InventoryRecord, name string, product *domain.NewProduct) {
	urls := record.ImageURLs()
	if len(urls) == 0 {
		found, err := s.commerce.SearchImagesByFilename(ctx, name, maxAttachedImages)
		if err != nil {
			s.fail(report, domain.StepImages, err)
			return
		}
		urls = found
	}
	if len(urls) > maxAttachedImages {
		urls = urls[:maxAttachedImages]
	}
	product.ImageURLs = urls
	if len(urls) == 0 {
		report.AddSkipped(domain.StepImages)
		return
	}
	report.AddOK(domain.StepImages)
}

func (s *SyncService) setInventory(ctx context.Context, report *domain.SyncReport, inventoryItemID uint64, quantity int) {
	locationID, err := s.topology.PrimaryLocation(ctx)
	if err == nil {
		err = s.commerce.SetInventoryLevel(ctx, inventoryItemID, locationID, quantity)
	}
	if err != nil {
		s.fail(report, domain.StepInventory, err)
		return
	}
	report.AddOK(domain.StepInventory)
}

// setCreateMetafields writes the size, brand, and shopping-feed attributes
// onto the new product and variant. Every write is independent.
func (s *SyncService) setCreateMetafields(ctx context.Context, report *domain.SyncReport, record *domain.InventoryRecord, created *domain.CreatedProduct) {
	productGID := domain.ProductGID(created.ProductID)
	variantGID := domain.VariantGID(created.VariantID)
	sku := record.String(domain.FieldSKU)

	type metafield struct {
		owner, namespace, key, valueType, value string
	}
	writes := []metafield{
		{productGID, "mm-google-shopping", "age_group", "single_line_text_field", "adult"},
		{productGID, "mm-google-shopping", "condition", "single_line_text_field", "new"},
		{productGID, "mm-google-shopping", "gender", "single_line_text_field", domain.NormalizeGender(record.String(domain.FieldGender))},
		{productGID, "mm-google-shopping", "mpn", "single_line_text_field", sku},
	}
	if size := record.String(domain.FieldSize); size != "" {
		writes = append(writes, metafield{variantGID, "custom", "size", "single_line_text_field", size})
	}
	if brand := record.String(domain.FieldBrand); brand != "" {
		writes = append(writes, metafield{productGID, "custom", "brand", "single_line_text_field", brand})
	}

	for _, m := range writes {
		step := domain.StepMetafields + "." + m.key
		if err := s.commerce.SetMetafield(ctx, m.owner, m.namespace, m.key, m.valueType, m.value); err != nil {
			s.fail(report, step, err)
			continue
		}
		report.AddOK(step)
	}
}

// setMarketPrices writes each market's fixed price onto its price list.
// Markets without a price in the record are skipped; failures are collected
// per market and never block the remaining markets.
func (s *SyncService) setMarketPrices(ctx context.Context, report *domain.SyncReport, record *domain.InventoryRecord, variantGID string) {
	lists, err := s.topology.MarketPriceLists(ctx)
	if err != nil {
		s.fail(report, domain.StepPrices, err)
		return
	}

	wrote := false
	for _, market := range domain.Markets {
		step := domain.StepPrices + "." + string(market)

		amount := record.MarketPrice(market)
		if amount == nil {
			report.AddSkipped(step)
			continue
		}

		list, ok := lists[domain.MarketDisplayNames[market]]
		if !ok {
			s.fail(report, step, &domain.NotFoundError{Resource: "price list", Key: string(market)})
			continue
		}

		if wrote {
			s.pause(ctx)
		}

		var compare *float64
		if market == domain.MarketUAE {
			compare = record.OptionalNumber(domain.FieldUAECompare)
		}

		if err := s.commerce.UpdatePriceListEntry(ctx, list.ID, variantGID, *amount, list.Currency, compare); err != nil {
			s.fail(report, step, err)
			continue
		}
		report.AddOK(step)
		wrote = true
	}
}

// writeBack records the platform product id on the inventory record and
// clears its creation flag. The product already exists at this point, so a
// failure here only degrades the run.
func (s *SyncService) writeBack(ctx context.Context, report *domain.SyncReport, recordID, productID string) {
	if recordID == "" {
		report.AddSkipped(domain.StepWriteBack)
		return
	}
	fields := map[string]any{
		domain.FieldShopifyID:       productID,
		domain.FieldCreateInShopify: false,
	}
	if err := s.inventory.UpdateRecordFields(ctx, recordID, fields); err != nil {
		s.fail(report, domain.StepWriteBack, err)
		return
	}
	report.AddOK(domain.StepWriteBack)
}

func (s *SyncService) newReport(workflow string) *domain.SyncReport {
	return &domain.SyncReport{
		RunID:     uuid.NewString(),
		Workflow:  workflow,
		StartedAt: time.Now(),
	}
}

// finish closes the report, records metrics, and persists the run. The save
// is best-effort and uses its own deadline so it survives caller
// cancellation.
func (s *SyncService) finish(report *domain.SyncReport) {
	report.FinishedAt = time.Now()
	s.metrics.RecordSyncRun(report.Workflow, string(report.Overall()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.SaveSyncReport(ctx, report); err != nil {
		s.logger.Warn().Err(err).Str("runId", report.RunID).Msg("Failed to persist sync report")
	}
}

func (s *SyncService) fail(report *domain.SyncReport, step string, err error) {
	report.AddFailed(step, err)
	s.metrics.RecordStepFailure(step)
	s.logger.Warn().Err(err).Str("step", step).Str("sku", report.SKU).Msg("Workflow step failed")
}

func (s *SyncService) pause(ctx context.Context) {
	if s.priceDelay <= 0 {
		return
	}
	t := time.NewTimer(s.priceDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
