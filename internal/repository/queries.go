package repository

// SQL used by the repository. "timestamp" is quoted everywhere because it is
// also a type name.
const (
	// Parameters: $1 = device_id, $2 = timestamp, $3 = energy_watts.
	queryInsertReading = `
		INSERT INTO telemetry (device_id, "timestamp", energy_watts)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, "timestamp") DO NOTHING
	`

	queryDevicesByOwner = `
		SELECT id, name, user_id, product_id, created_at
		FROM device
		WHERE user_id = $1
		ORDER BY created_at, name
	`

	queryDevicesWithProductByOwner = `
		SELECT d.id, d.name, p.type
		FROM device d
		JOIN product p ON p.id = d.product_id
		WHERE d.user_id = $1
		ORDER BY d.created_at, d.name
	`

	queryDeviceOwned = `
		SELECT EXISTS (SELECT 1 FROM device WHERE id = $1 AND user_id = $2)
	`

	// Parameters: $1 = owner, $2 = start, $3 = end, $4 = optional device_id.
	queryDeviceWindowStats = `
		SELECT d.id, d.name,
		       AVG(t.energy_watts)::double precision,
		       MIN(t."timestamp"),
		       MAX(t."timestamp"),
		       COUNT(*)
		FROM telemetry t
		JOIN device d ON d.id = t.device_id
		WHERE d.user_id = $1
		  AND t."timestamp" >= $2
		  AND t."timestamp" <= $3
		  AND ($4::uuid IS NULL OR d.id = $4::uuid)
		GROUP BY d.id, d.name
		ORDER BY d.name
	`

	// Parameters: $1 = bucket width, $2 = device_id, $3 = start, $4 = end.
	// Buckets without readings produce no row.
	queryBucketedSeries = `
		SELECT time_bucket($1::interval, "timestamp") AS bucket,
		       AVG(energy_watts)::double precision AS avg_watts
		FROM telemetry
		WHERE device_id = $2
		  AND "timestamp" >= $3
		  AND "timestamp" <= $4
		GROUP BY bucket
		ORDER BY bucket
	`

	queryFindProduct = `SELECT id FROM product WHERE name = $1 ORDER BY id LIMIT 1`

	queryInsertProduct = `
		INSERT INTO product (name, type, description)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	queryInsertDevice = `
		INSERT INTO device (name, user_id, product_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, user_id, product_id, created_at
	`
)
