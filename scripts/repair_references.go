// 手动触发引用修复脚本
//
// 扫描全部问题，剔除指向已删除回答的成员引用，
// 清除悬空的采纳状态，并统一标签为小写去重形式。
// 正常运行时级联删除保证引用一致，此脚本用于历史数据
// 或异常中断后的修复。
//
// 用法: go run scripts/repair_references.go

package main

import (
	"log"
	"os"
	"strings"

	"qa_forum_backend/internal/config"
	"qa_forum_backend/internal/model"
	"qa_forum_backend/pkg/database"
	"qa_forum_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	var questions []model.Question
	if err := db.Find(&questions).Error; err != nil {
		log.Fatalf("加载问题失败: %v", err)
	}

	repaired := 0
	for i := range questions {
		q := &questions[i]

		var existing []string
		if err := db.Model(&model.Answer{}).
			Where("question_id = ?", q.ID).
			Pluck("id", &existing).Error; err != nil {
			log.Fatalf("加载回答失败: %v", err)
		}
		existingSet := make(map[string]bool, len(existing))
		for _, id := range existing {
			existingSet[id] = true
		}

		dirty := false

		kept := make(model.StringList, 0, len(q.AnswerIDs))
		for _, id := range q.AnswerIDs {
			if existingSet[id] {
				kept = append(kept, id)
			} else {
				dirty = true
			}
		}
		// 存在但未登记的回答补回成员列表
		for _, id := range existing {
			if !kept.Contains(id) {
				kept = append(kept, id)
				dirty = true
			}
		}
		q.AnswerIDs = kept

		if q.AcceptedAnswerID != nil && !existingSet[*q.AcceptedAnswerID] {
			q.AcceptedAnswerID = nil
			dirty = true
		}

		normalized := make(model.StringList, 0, len(q.Tags))
		for _, tag := range q.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" && !normalized.Contains(tag) {
				normalized = append(normalized, tag)
			}
		}
		if len(normalized) != len(q.Tags) {
			dirty = true
		} else {
			for i := range normalized {
				if normalized[i] != q.Tags[i] {
					dirty = true
					break
				}
			}
		}
		q.Tags = normalized

		if dirty {
			if err := db.Save(q).Error; err != nil {
				log.Fatalf("保存问题 %s 失败: %v", q.ID, err)
			}
			repaired++
		}
	}

	log.Printf("扫描 %d 个问题，修复 %d 个", len(questions), repaired)
}
