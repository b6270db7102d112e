package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		full_name     VARCHAR(255) NULL,
		created_at    DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at    DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(36)    NOT NULL,
		token_hash CHAR(64)    NOT NULL,
		expires_at DATETIME    NOT NULL,
		revoked_at DATETIME    NULL,
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_refresh_token_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS roles (
		user_id    CHAR(36)    NOT NULL PRIMARY KEY,
		role       VARCHAR(16) NOT NULL DEFAULT 'user',
		created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		CONSTRAINT fk_roles_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		user_id    CHAR(36)     NOT NULL,
		email      VARCHAR(255) NOT NULL,
		full_name  VARCHAR(255) NULL,
		is_active  TINYINT(1)   NOT NULL DEFAULT 1,
		created_at DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_user_profiles_user (user_id),
		CONSTRAINT fk_user_profiles_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS wedding_profiles (
		id            CHAR(36)      NOT NULL PRIMARY KEY,
		user_id       CHAR(36)      NOT NULL,
		wedding_date  DATE          NULL,
		total_budget  DECIMAL(15,2) NULL,
		guest_count   INT           NULL,
		city          VARCHAR(120)  NULL,
		partner1_name VARCHAR(120)  NULL,
		partner2_name VARCHAR(120)  NULL,
		photo_url     VARCHAR(512)  NULL,
		created_at    DATETIME(3)   NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at    DATETIME(3)   NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_wedding_profiles_user (user_id),
		CONSTRAINT fk_wedding_profiles_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS budgets (
		id             CHAR(36)      NOT NULL PRIMARY KEY,
		user_id        CHAR(36)      NOT NULL,
		category       VARCHAR(32)   NOT NULL,
		planned_amount DECIMAL(15,2) NOT NULL DEFAULT 0,
		spent_amount   DECIMAL(15,2) NOT NULL DEFAULT 0,
		created_at     DATETIME(3)   NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at     DATETIME(3)   NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		UNIQUE KEY uq_budgets_user_category (user_id, category),
		CONSTRAINT fk_budgets_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS providers (
		id           CHAR(36)      NOT NULL PRIMARY KEY,
		user_id      CHAR(36)      NOT NULL,
		name         VARCHAR(255)  NOT NULL,
		category     VARCHAR(32)   NOT NULL,
		city         VARCHAR(120)  NULL,
		price_approx DECIMAL(15,2) NULL,
		whatsapp     VARCHAR(32)   NULL,
		instagram    VARCHAR(64)   NULL,
		notes        TEXT          NULL,
		contacted    TINYINT(1)    NOT NULL DEFAULT 0,
		hired        TINYINT(1)    NOT NULL DEFAULT 0,
		is_custom    TINYINT(1)    NOT NULL DEFAULT 1,
		created_at   DATETIME(3)   NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at   DATETIME(3)   NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_providers_user (user_id),
		CONSTRAINT fk_providers_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id               CHAR(36)      NOT NULL PRIMARY KEY,
		user_id          CHAR(36)      NOT NULL,
		amount           DECIMAL(15,2) NOT NULL,
		type             VARCHAR(16)   NOT NULL,
		category         VARCHAR(32)   NULL,
		description      VARCHAR(512)  NULL,
		provider_id      CHAR(36)      NULL,
		transaction_date DATETIME(3)   NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		created_at       DATETIME(3)   NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_transactions_user (user_id, transaction_date),
		CONSTRAINT fk_transactions_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_transactions_provider FOREIGN KEY (provider_id) REFERENCES providers(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		user_id       CHAR(36)     NOT NULL,
		title         VARCHAR(255) NOT NULL,
		description   TEXT         NULL,
		due_date      DATE         NULL,
		completed     TINYINT(1)   NOT NULL DEFAULT 0,
		is_custom     TINYINT(1)   NOT NULL DEFAULT 1,
		months_before INT          NULL,
		created_at    DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updated_at    DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_tasks_user (user_id, due_date),
		CONSTRAINT fk_tasks_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	"CREATE TABLE IF NOT EXISTS day_schedule (" + `
		id         CHAR(36)     NOT NULL PRIMARY KEY,
		user_id    CHAR(36)     NOT NULL,
		` + "`time`" + `     CHAR(5)      NOT NULL,
		activity   VARCHAR(255) NOT NULL,
		notes      TEXT         NULL,
		completed  TINYINT(1)   NOT NULL DEFAULT 0,
		created_at DATETIME(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		KEY idx_day_schedule_user (user_id),
		CONSTRAINT fk_day_schedule_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
