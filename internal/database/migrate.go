package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the booking service uses.  Statements are
// idempotent so Migrate can run on each deploy.  All DATETIME columns hold
// UTC.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS outlets (
		id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name              VARCHAR(120) NOT NULL,
		is_active         TINYINT(1) NOT NULL DEFAULT 1,
		min_advance_hours INT NOT NULL DEFAULT 0,
		max_advance_days  INT NOT NULL DEFAULT 30,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS outlet_tables (
		id        BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		outlet_id BIGINT UNSIGNED NOT NULL,
		number    VARCHAR(16) NOT NULL,
		capacity  INT NOT NULL,
		section   VARCHAR(64) NOT NULL DEFAULT '',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		UNIQUE KEY uq_outlet_table (outlet_id, number),
		CONSTRAINT fk_tables_outlet FOREIGN KEY (outlet_id) REFERENCES outlets(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS slot_settings (
		id                      BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		outlet_id               BIGINT UNSIGNED NOT NULL,
		weekday                 TINYINT NULL,
		start_minute            INT NULL,
		end_minute              INT NULL,
		capacity                INT NOT NULL,
		allocation_percent      INT NOT NULL DEFAULT 100,
		dining_duration_minutes INT NOT NULL DEFAULT 90,
		KEY idx_settings_outlet (outlet_id),
		CONSTRAINT fk_settings_outlet FOREIGN KEY (outlet_id) REFERENCES outlets(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		code             CHAR(7) NOT NULL,
		outlet_id        BIGINT UNSIGNED NOT NULL,
		customer_name    VARCHAR(120) NOT NULL,
		customer_phone   VARCHAR(32) NOT NULL,
		customer_email   VARCHAR(190) NOT NULL DEFAULT '',
		special_requests TEXT NULL,
		party_size       INT NOT NULL,
		start_time       DATETIME NOT NULL,
		duration_minutes INT NOT NULL,
		status           ENUM('PENDING','CONFIRMED','CANCELED','NO_SHOW','COMPLETED') NOT NULL,
		created_at       DATETIME NOT NULL,
		updated_at       DATETIME NOT NULL,
		UNIQUE KEY uq_reservation_code (code),
		KEY idx_reservations_outlet_start (outlet_id, start_time),
		CONSTRAINT fk_reservations_outlet FOREIGN KEY (outlet_id) REFERENCES outlets(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservation_tables (
		reservation_id BIGINT UNSIGNED NOT NULL,
		table_id       BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (reservation_id, table_id),
		CONSTRAINT fk_rt_reservation FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE,
		CONSTRAINT fk_rt_table FOREIGN KEY (table_id) REFERENCES outlet_tables(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reservation_status_changes (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reservation_id BIGINT UNSIGNED NOT NULL,
		old_status     VARCHAR(16) NULL,
		new_status     VARCHAR(16) NOT NULL,
		reason         VARCHAR(255) NOT NULL DEFAULT '',
		changed_at     DATETIME NOT NULL,
		KEY idx_changes_reservation (reservation_id),
		CONSTRAINT fk_changes_reservation FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS table_holds (
		id               CHAR(36) PRIMARY KEY,
		outlet_id        BIGINT UNSIGNED NOT NULL,
		party_size       INT NOT NULL,
		target_time      DATETIME NOT NULL,
		duration_minutes INT NOT NULL,
		session_id       VARCHAR(128) NOT NULL,
		created_at       DATETIME NOT NULL,
		expires_at       DATETIME NOT NULL,
		is_active        TINYINT(1) NOT NULL DEFAULT 1,
		KEY idx_holds_session (session_id, is_active),
		KEY idx_holds_expiry (is_active, expires_at),
		KEY idx_holds_outlet_target (outlet_id, target_time),
		CONSTRAINT fk_holds_outlet FOREIGN KEY (outlet_id) REFERENCES outlets(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS table_hold_tables (
		hold_id  CHAR(36) NOT NULL,
		table_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (hold_id, table_id),
		CONSTRAINT fk_ht_hold FOREIGN KEY (hold_id) REFERENCES table_holds(id) ON DELETE CASCADE,
		CONSTRAINT fk_ht_table FOREIGN KEY (table_id) REFERENCES outlet_tables(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS queue_entries (
		id                     BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		code                   VARCHAR(8) NOT NULL,
		outlet_id              BIGINT UNSIGNED NOT NULL,
		customer_name          VARCHAR(120) NOT NULL,
		customer_phone         VARCHAR(32) NOT NULL DEFAULT '',
		party_size             INT NOT NULL,
		status                 ENUM('WAITING','READY','SEATED','COMPLETED','CANCELLED','NO_SHOW') NOT NULL,
		position               INT NOT NULL DEFAULT 0,
		estimated_wait_minutes INT NOT NULL DEFAULT 0,
		assigned_table_id      BIGINT UNSIGNED NULL,
		is_held                TINYINT(1) NOT NULL DEFAULT 0,
		held_at                DATETIME NULL,
		called_at              DATETIME NULL,
		ready_expires_at       DATETIME NULL,
		seated_at              DATETIME NULL,
		completed_at           DATETIME NULL,
		cancel_reason          VARCHAR(255) NOT NULL DEFAULT '',
		joined_at              DATETIME NOT NULL,
		updated_at             DATETIME NOT NULL,
		KEY idx_queue_outlet_status (outlet_id, status, position),
		KEY idx_queue_ready_expiry (status, ready_expires_at),
		CONSTRAINT fk_queue_outlet FOREIGN KEY (outlet_id) REFERENCES outlets(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reminders (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reservation_id BIGINT UNSIGNED NOT NULL,
		kind           VARCHAR(16) NOT NULL,
		due_at         DATETIME NOT NULL,
		status         VARCHAR(16) NOT NULL DEFAULT 'PENDING',
		sent_at        DATETIME NULL,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_reminders_due (status, due_at),
		KEY idx_reminders_reservation (reservation_id),
		CONSTRAINT fk_reminders_reservation FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS staff (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(190) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16) NOT NULL,
		is_active     TINYINT(1) NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_staff_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the schema.  Each statement runs on its own because the
// driver is opened without multiStatements.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
