package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"crowdfund-api/internal/model"
)

type CampaignCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewCampaignCache(client *redisv9.Client, ttl time.Duration) *CampaignCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &CampaignCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *CampaignCache) GetCampaign(ctx context.Context, id uint) (*model.Campaign, bool, error) {
	raw, err := c.client.Get(ctx, c.campaignKey(id)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get campaign failed: %w", err)
	}

	var campaign model.Campaign
	if err := json.Unmarshal([]byte(raw), &campaign); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached campaign failed: %w", err)
	}
	return &campaign, true, nil
}

func (c *CampaignCache) SetCampaign(ctx context.Context, campaign *model.Campaign) error {
	payload, err := json.Marshal(campaign)
	if err != nil {
		return fmt.Errorf("marshal campaign cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.campaignKey(campaign.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set campaign failed: %w", err)
	}
	return nil
}

func (c *CampaignCache) DeleteCampaign(ctx context.Context, id uint) error {
	if err := c.client.Del(ctx, c.campaignKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete campaign failed: %w", err)
	}
	return nil
}

func (c *CampaignCache) campaignKey(id uint) string {
	return fmt.Sprintf("campaign:%d", id)
}
