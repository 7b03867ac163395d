package config

import (
	_ "github.com/dataset-hub/dataset-hub/internal/dataset/bacen"
	_ "github.com/dataset-hub/dataset-hub/internal/dataset/ibge"
)
